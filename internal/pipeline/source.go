package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/dgallion1/docrank/internal/parser"
)

// ErrDocumentNotFound marks a listed document that is not available.
var ErrDocumentNotFound = errors.New("document not found")

// Source resolves a listed filename into a parsed document.
type Source interface {
	Open(ctx context.Context, filename string) (*doctree.Document, error)
}

// DirSource reads documents from a directory on disk.
type DirSource struct {
	Dir string
}

func (s DirSource) Open(ctx context.Context, filename string) (*doctree.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Rooting the name first keeps lookups inside Dir.
	path := filepath.Join(s.Dir, filepath.Clean("/"+filename))
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, filename)
		}
		return nil, fmt.Errorf("stat %s: %w", filename, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrDocumentNotFound, filename)
	}
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	doc, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}
	doc.Filename = filename
	return doc, nil
}

// MemorySource serves uploaded document bytes keyed by filename.
type MemorySource struct {
	Files map[string][]byte
}

func (s MemorySource) Open(ctx context.Context, filename string) (*doctree.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := s.Files[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, filename)
	}
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, err
	}
	doc.Filename = filename
	return doc, nil
}
