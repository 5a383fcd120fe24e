package metadata

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"fnolguard/internal/domain"
)

var pdfInfoKeys = []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate", "ModDate"}

func extractDocument(data []byte, contentType string, sink factSink) error {
	switch contentType {
	case domain.ContentTypePDF:
		return extractPDF(data, sink)
	case domain.ContentTypeXLSX:
		return extractXLSX(data, sink)
	case domain.ContentTypeText, domain.ContentTypeCSV:
		extractPlainText(data, sink)
		return nil
	}
	return nil
}

func extractPDF(data []byte, sink factSink) error {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("cannot read PDF: %w", err)
	}
	sink.add("pages", strconv.Itoa(r.NumPage()))

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}
	for _, key := range pdfInfoKeys {
		v := info.Key(key)
		if v.IsNull() {
			continue
		}
		text := v.Text()
		if key == "CreationDate" || key == "ModDate" {
			text = normalizePDFDate(text)
		}
		sink.add(key, text)
	}
	return nil
}

var pdfDatePattern = regexp.MustCompile(`^D?:?(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?([Zz+\-])?(\d{2})?'?(\d{2})?'?$`)

// normalizePDFDate converts "D:YYYYMMDDHHmmSSOHH'mm'" into RFC 3339. Values
// that do not match are returned unchanged.
func normalizePDFDate(raw string) string {
	s := strings.TrimSpace(raw)
	m := pdfDatePattern.FindStringSubmatch(s)
	if m == nil {
		return raw
	}
	num := func(v string, def int) int {
		if v == "" {
			return def
		}
		n, _ := strconv.Atoi(v)
		return n
	}
	loc := time.UTC
	if sign := m[7]; sign == "+" || sign == "-" {
		offset := num(m[8], 0)*3600 + num(m[9], 0)*60
		if sign == "-" {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	}
	t := time.Date(num(m[1], 0), time.Month(num(m[2], 1)), num(m[3], 1),
		num(m[4], 0), num(m[5], 0), num(m[6], 0), 0, loc)
	return t.Format(time.RFC3339)
}

func extractXLSX(data []byte, sink factSink) error {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cannot read workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sink.add("sheets", strconv.Itoa(len(f.GetSheetList())))

	props, err := f.GetDocProps()
	if err != nil {
		return nil
	}
	sink.add("Creator", props.Creator)
	sink.add("LastModifiedBy", props.LastModifiedBy)
	sink.add("Created", props.Created)
	sink.add("Modified", props.Modified)
	sink.add("Title", props.Title)
	sink.add("Subject", props.Subject)
	return nil
}

func extractPlainText(data []byte, sink factSink) {
	lines := 0
	if len(data) > 0 {
		lines = bytes.Count(data, []byte{'\n'})
		if data[len(data)-1] != '\n' {
			lines++
		}
	}
	sink.add("lines", strconv.Itoa(lines))
	sink.add("valid_utf8", strconv.FormatBool(utf8.Valid(data)))
}
