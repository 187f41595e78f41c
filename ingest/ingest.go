// Package ingest turns uploaded files into plain text. A file that cannot
// be processed becomes a warning, never a batch failure.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"docgenius/types"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type Ingestor struct {
	logger *slog.Logger
}

func New() *Ingestor {
	return &Ingestor{logger: slog.Default()}
}

// Ingest extracts text from every file in the batch. Failed files are
// reported as warnings alongside the successful extractions.
func (in *Ingestor) Ingest(ctx context.Context, files []types.UploadedDocument) ([]types.ExtractedText, []types.ExtractionWarning) {
	var texts []types.ExtractedText
	var warnings []types.ExtractionWarning

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		text, err := in.extract(file)
		if err != nil {
			in.logger.Warn("extraction failed", "file", file.Name, "error", err)
			warnings = append(warnings, types.ExtractionWarning{Name: file.Name, Err: err})
			continue
		}
		texts = append(texts, types.ExtractedText{Source: file.Name, Text: text})
	}
	return texts, warnings
}

func (in *Ingestor) extract(file types.UploadedDocument) (string, error) {
	switch file.Kind {
	case types.FilePDF:
		return extractPDF(file.Data)
	case types.FileText:
		return decodeUTF8(file.Data)
	default:
		return "", fmt.Errorf("unsupported file kind %q", file.Kind)
	}
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	return string(data), nil
}

// extractPDF pulls text page by page and joins pages with newlines. A page
// without extractable text contributes an empty string, not an error.
func extractPDF(data []byte) (string, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), api.LoadConfiguration())
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	pages := make([]string, 0, pdfCtx.PageCount)
	for p := 1; p <= pdfCtx.PageCount; p++ {
		content, err := pageContent(pdfCtx, p)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", p, err)
		}
		pages = append(pages, decodePageText(content))
	}
	return strings.Join(pages, "\n"), nil
}
