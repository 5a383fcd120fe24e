package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"fnolguard/internal/domain"
)

// ErrTextUnsupported is returned by ExtractText for content types that carry
// no text layer.
var ErrTextUnsupported = errors.New("content type has no extractable text")

// ExtractText returns the plain text of a document-family file, cut to at
// most limit runes. A limit of zero or less means no limit.
func (e *Extractor) ExtractText(data []byte, contentType string, limit int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("text extraction crashed: %v", r)
		}
	}()

	ct := effectiveType(domain.NormalizeContentType(contentType),
		domain.NormalizeContentType(mimetype.Detect(data).String()))

	var b limitedBuilder
	b.limit = limit

	switch ct {
	case domain.ContentTypePDF:
		err = pdfText(data, &b)
	case domain.ContentTypeXLSX:
		err = xlsxText(data, &b)
	case domain.ContentTypeText, domain.ContentTypeCSV:
		b.WriteString(strings.ToValidUTF8(string(data), "�"))
	default:
		return "", fmt.Errorf("%w: %s", ErrTextUnsupported, ct)
	}
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func pdfText(data []byte, b *limitedBuilder) error {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("cannot read PDF: %w", err)
	}
	for i := 1; i <= r.NumPage() && !b.Full(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			b.WriteString("\n")
		}
		b.WriteString(content)
	}
	return nil
}

func xlsxText(data []byte, b *limitedBuilder) error {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cannot read workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range f.GetSheetList() {
		if b.Full() {
			break
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		b.WriteString("# " + sheet + "\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t") + "\n")
		}
	}
	return nil
}

// limitedBuilder drops everything written past limit runes.
type limitedBuilder struct {
	sb    strings.Builder
	n     int
	limit int
}

func (b *limitedBuilder) WriteString(s string) {
	if b.limit <= 0 {
		b.sb.WriteString(s)
		return
	}
	for _, r := range s {
		if b.n >= b.limit {
			return
		}
		b.sb.WriteRune(r)
		b.n++
	}
}

func (b *limitedBuilder) Full() bool { return b.limit > 0 && b.n >= b.limit }

func (b *limitedBuilder) String() string {
	s := b.sb.String()
	if !utf8.ValidString(s) {
		return strings.ToValidUTF8(s, "�")
	}
	return s
}
