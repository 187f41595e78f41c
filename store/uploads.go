// Package store keeps the raw uploaded documents on disk between upload
// and indexing. A new batch fully replaces the previous one, so the index
// built afterwards reflects the latest upload set only.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docgenius/types"
)

type FileStore struct {
	dir    string
	logger *slog.Logger
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir, logger: slog.Default()}, nil
}

// Replace removes every stored document and writes the new batch. Old files
// go first so a stale document can never survive into the next index.
func (s *FileStore) Replace(files []types.UploadedDocument) error {
	if err := s.clear(); err != nil {
		return err
	}
	for _, file := range files {
		name := filepath.Base(file.Name)
		path := filepath.Join(s.dir, name)
		if err := os.WriteFile(path, file.Data, 0644); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		s.logger.Info("upload saved", "file", name, "bytes", len(file.Data))
	}
	return nil
}

// List returns the currently stored documents. Files with an unsupported
// extension are skipped with a warning.
func (s *FileStore) List() ([]types.UploadedDocument, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	var docs []types.UploadedDocument
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind, ok := KindForName(entry.Name())
		if !ok {
			s.logger.Warn("skipping unsupported upload", "file", entry.Name())
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		docs = append(docs, types.UploadedDocument{
			Name: entry.Name(),
			Kind: kind,
			Data: data,
		})
	}
	return docs, nil
}

func (s *FileStore) clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read upload dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// KindForName maps a filename to the file kind the ingestor understands.
func KindForName(name string) (types.FileKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return types.FilePDF, true
	case ".txt", ".text", ".md":
		return types.FileText, true
	}
	return "", false
}
