package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docintel/core"
)

// maxTextFileSize bounds text extraction against pathological files
const maxTextFileSize = 64 * 1024 * 1024 // 64MB

// FileTextExtractor reads extracted plain text from the document store on
// disk, laid out as <root>/<document-id>/<filename>.txt by the upstream
// conversion pipeline. Files that were never converted, are empty or are not
// valid text yield ErrNoTextContent.
type FileTextExtractor struct {
	root string
}

// NewFileTextExtractor creates a text extractor rooted at the store path
func NewFileTextExtractor(root string) *FileTextExtractor {
	return &FileTextExtractor{root: root}
}

// ExtractText implements core.TextExtractor
func (e *FileTextExtractor) ExtractText(ctx context.Context, doc *core.Document, file *core.DocumentFile) (string, error) {
	path := filepath.Join(e.root, doc.ID, file.Filename+".txt")

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", core.ErrNoTextContent
	}
	if err != nil {
		return "", fmt.Errorf("stat text file: %w", err)
	}
	if info.Size() == 0 || info.Size() > maxTextFileSize {
		return "", core.ErrNoTextContent
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" || !utf8.ValidString(text) {
		return "", core.ErrNoTextContent
	}
	return text, nil
}
