// Package pdfx extracts raw page text, table grids and embedded images from
// PDF and EPUB documents via go-fitz.
package pdfx

import (
	"encoding/base64"
	"fmt"
	"regexp"

	"github.com/gen2brain/go-fitz"
)

// Extractor is the document extraction contract the chunkers consume. Pages
// are 0-indexed. Implementations other than Document exist only in tests.
type Extractor interface {
	NumPages() int
	PageText(page int) (string, error)
	PageTables(page int) ([][][]string, error)
	PageImages(page int) ([][]byte, error)
	Close() error
}

// Document is the go-fitz backed Extractor. go-fitz opens both PDF and EPUB.
type Document struct {
	doc *fitz.Document
}

// Open opens a document file for extraction.
func Open(filePath string) (*Document, error) {
	doc, err := fitz.New(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.doc.NumPage()
}

// PageText returns the raw extracted text of a page.
func (d *Document) PageText(page int) (string, error) {
	text, err := d.doc.Text(page)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", page, err)
	}
	return text, nil
}

// PageTables detects table grids in the page text. MuPDF has no structural
// table API, so detection works on column-aligned text runs.
func (d *Document) PageTables(page int) ([][][]string, error) {
	text, err := d.doc.Text(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from page %d: %w", page, err)
	}
	return DetectTables(text), nil
}

// dataURIPattern matches base64 image payloads in MuPDF's HTML rendering,
// which inlines every embedded image as a data URI.
var dataURIPattern = regexp.MustCompile(`src="data:image/[a-zA-Z]+;base64,([^"]+)"`)

// PageImages returns the embedded images of a page as raw encoded bytes, in
// document order.
func (d *Document) PageImages(page int) ([][]byte, error) {
	html, err := d.doc.HTML(page, false)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	var images [][]byte
	for _, m := range dataURIPattern.FindAllStringSubmatch(html, -1) {
		data, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			// Skip payloads MuPDF emitted with a broken encoding.
			continue
		}
		images = append(images, data)
	}
	return images, nil
}

// Close releases the underlying document.
func (d *Document) Close() error {
	return d.doc.Close()
}
