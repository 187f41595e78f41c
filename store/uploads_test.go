package store

import (
	"testing"

	"docgenius/types"
)

func TestReplace_ClearsPreviousBatch(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first := []types.UploadedDocument{
		{Name: "old.txt", Kind: types.FileText, Data: []byte("old content")},
	}
	if err := s.Replace(first); err != nil {
		t.Fatal(err)
	}

	second := []types.UploadedDocument{
		{Name: "new.txt", Kind: types.FileText, Data: []byte("new content")},
	}
	if err := s.Replace(second); err != nil {
		t.Fatal(err)
	}

	docs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected only the new batch, got %d files", len(docs))
	}
	if docs[0].Name != "new.txt" || string(docs[0].Data) != "new content" {
		t.Errorf("unexpected stored document: %+v", docs[0])
	}
}

func TestList_SkipsUnsupportedExtensions(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	batch := []types.UploadedDocument{
		{Name: "doc.pdf", Kind: types.FilePDF, Data: []byte("%PDF-1.4")},
		{Name: "notes.md", Kind: types.FileText, Data: []byte("# notes")},
		{Name: "photo.png", Kind: types.FileKind("image"), Data: []byte{1}},
	}
	if err := s.Replace(batch); err != nil {
		t.Fatal(err)
	}

	docs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected pdf+md only, got %d", len(docs))
	}
	kinds := map[string]types.FileKind{}
	for _, d := range docs {
		kinds[d.Name] = d.Kind
	}
	if kinds["doc.pdf"] != types.FilePDF || kinds["notes.md"] != types.FileText {
		t.Errorf("unexpected kinds: %v", kinds)
	}
}

func TestReplace_SanitizesPaths(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	batch := []types.UploadedDocument{
		{Name: "../escape.txt", Kind: types.FileText, Data: []byte("x")},
	}
	if err := s.Replace(batch); err != nil {
		t.Fatal(err)
	}
	docs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Name != "escape.txt" {
		t.Fatalf("upload name must be stripped to its base, got %+v", docs)
	}
}

func TestKindForName(t *testing.T) {
	if k, ok := KindForName("Report.PDF"); !ok || k != types.FilePDF {
		t.Error("pdf extension should map to FilePDF case-insensitively")
	}
	if _, ok := KindForName("archive.zip"); ok {
		t.Error("zip must be unsupported")
	}
}
