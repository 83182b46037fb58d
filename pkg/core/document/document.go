// Package document models one input report: raw bytes, report year,
// detected format, and the plain-text layer the extraction tiers read.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Kind is the detected document format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindHTML Kind = "html"
	KindText Kind = "text"
)

// ErrNoTextLayer is returned when a document has no extractable text
// (typically a scanned PDF with no sidecar text file). OCR is out of
// scope; such documents fail fast.
var ErrNoTextLayer = errors.New("document has no text layer")

// Document is one report file ready for extraction. The text layer is
// split into pages on form-feed characters.
type Document struct {
	Name      string
	Year      int
	Kind      Kind
	PageCount int

	raw  []byte
	text string
}

// New builds a Document from in-memory bytes. For PDF input, text must
// hold the pre-extracted text layer (form-feed page separators); PDFs
// with an empty text layer are rejected with ErrNoTextLayer.
func New(name string, year int, data []byte, text string) (*Document, error) {
	d := &Document{
		Name: name,
		Year: year,
		Kind: detectKind(data),
		raw:  data,
	}

	switch d.Kind {
	case KindPDF:
		n, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("document %s: count pages: %w", name, err)
		}
		d.PageCount = n
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("document %s: %w", name, ErrNoTextLayer)
		}
		d.text = text
	case KindHTML:
		if strings.TrimSpace(text) == "" {
			text = htmlText(data)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("document %s: %w", name, ErrNoTextLayer)
		}
		d.text = text
	default:
		d.text = string(data)
		if text != "" {
			d.text = text
		}
		if strings.TrimSpace(d.text) == "" {
			return nil, fmt.Errorf("document %s: %w", name, ErrNoTextLayer)
		}
	}

	if d.PageCount == 0 {
		d.PageCount = len(d.Pages())
	}
	return d, nil
}

// Load reads a report from disk. For PDFs the text layer is read from
// a sidecar file next to the report ("report.pdf" -> "report.txt").
func Load(path string, year int) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}

	text := ""
	if detectKind(data) == KindPDF {
		sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
		if b, err := os.ReadFile(sidecar); err == nil {
			text = string(b)
		}
	}

	return New(filepath.Base(path), year, data, text)
}

// Raw returns the original file bytes (used by the HTML table backend).
func (d *Document) Raw() []byte { return d.raw }

// Text returns the full text layer.
func (d *Document) Text() string { return d.text }

// Pages splits the text layer on form feeds. A document without form
// feeds is a single page.
func (d *Document) Pages() []string {
	return strings.Split(d.text, "\f")
}

func detectKind(data []byte) Kind {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return KindPDF
	case looksLikeHTML(data):
		return KindHTML
	default:
		return KindText
	}
}

// htmlText flattens an HTML report into a line-oriented text layer so
// the pattern and semantic tiers can read documents whose tables the
// HTML table backend cannot classify. Table cells keep a column gap
// between them.
func htmlText(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var lines []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, tr").Each(func(_ int, sel *goquery.Selection) {
		var parts []string
		if sel.Is("tr") {
			sel.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				if c := strings.TrimSpace(cell.Text()); c != "" {
					parts = append(parts, c)
				}
			})
		} else if txt := strings.TrimSpace(sel.Text()); txt != "" {
			parts = append(parts, txt)
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, "   "))
		}
	})

	if len(lines) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(lines, "\n")
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<table"))
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// YearFromFilename pulls the report year out of a file name such as
// "halvarsrapport-2023.pdf". The first plausible four-digit year wins.
func YearFromFilename(name string) (int, bool) {
	m := yearPattern.FindString(filepath.Base(name))
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}
