package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"contract-review/internal/models"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadableDocument is returned when a source file cannot be opened or
// parsed as a PDF.
var ErrUnreadableDocument = errors.New("unreadable document")

// LoadPDF extracts one PageRecord per page of the given PDF file.
// Pages with no extractable text still produce a record; the splitter
// drops them.
func LoadPDF(filePath string) ([]models.PageRecord, error) {
	if ext := strings.ToLower(filepath.Ext(filePath)); ext != ".pdf" {
		return nil, fmt.Errorf("%w: unsupported file format %s", ErrUnreadableDocument, ext)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	defer f.Close()

	// reader initialization needs the file size
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	var pages []models.PageRecord
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnreadableDocument, i, err)
		}
		pages = append(pages, models.PageRecord{
			Text:       pageText,
			PageNumber: i,
			SourcePath: filePath,
		})
	}
	return pages, nil
}
