package api

import (
	"fmt"
	"io"

	"docgenius/store"
	"docgenius/types"

	"github.com/gofiber/fiber/v2"
)

type FileHandler struct {
	uploads *store.FileStore
}

func NewFileHandler(uploads *store.FileStore) *FileHandler {
	return &FileHandler{uploads: uploads}
}

// HandleUpload receives a multipart batch under the "files" field and
// replaces the previous upload set with it.
func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return ErrBadRequest()
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return NewError(fiber.StatusBadRequest, "no files in request")
	}

	docs := make([]types.UploadedDocument, 0, len(headers))
	for _, header := range headers {
		kind, ok := store.KindForName(header.Filename)
		if !ok {
			return NewError(fiber.StatusBadRequest,
				fmt.Sprintf("unsupported file type: %s (pdf and text only)", header.Filename))
		}
		file, err := header.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return err
		}
		docs = append(docs, types.UploadedDocument{
			Name: header.Filename,
			Kind: kind,
			Data: data,
		})
	}

	if err := h.uploads.Replace(docs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"saved": len(docs)})
}
