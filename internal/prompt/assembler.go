// Package prompt builds the single text prompt sent to every model.
package prompt

import (
	"strconv"
	"strings"

	"fnolguard/internal/domain"
)

// Section markers. The model sees these verbatim.
const (
	QueryStart   = "[User Query Start]"
	QueryEnd     = "[User Query End]"
	FileEnd      = "--- End Attached File ---"
	NotStored    = "not stored"
	NoMetadata   = "none"
	factSep      = "; "
	fileStartFmt = "--- Attached File "
)

// Assemble combines the system instruction, the claim narrative and one
// section per file into the prompt text. Files are emitted in the given
// order, including those that failed upload or extraction.
func Assemble(systemInstruction, narrative string, files []domain.FileMetadata) string {
	var b strings.Builder

	b.WriteString(systemInstruction)
	b.WriteString("\n\n")
	b.WriteString(QueryStart)
	b.WriteString("\n")
	b.WriteString(narrative)
	b.WriteString("\n")
	b.WriteString(QueryEnd)

	for i, f := range files {
		b.WriteString("\n\n")
		writeFileSection(&b, i+1, f)
	}
	b.WriteString("\n")

	return b.String()
}

func writeFileSection(b *strings.Builder, n int, f domain.FileMetadata) {
	b.WriteString(fileStartFmt)
	b.WriteString(strconv.Itoa(n))
	b.WriteString(" (")
	b.WriteString(oneLine(f.OriginalName))
	b.WriteString(") ---\n")

	b.WriteString("Location: ")
	if loc := f.Location(); loc != "" {
		b.WriteString(loc)
	} else {
		b.WriteString(NotStored)
	}
	b.WriteString("\n")

	b.WriteString("Content Type: ")
	b.WriteString(oneLine(f.ContentType))
	b.WriteString("\n")

	switch {
	case f.UploadError != "":
		b.WriteString("Upload failed: ")
		b.WriteString(oneLine(f.UploadError))
	case f.ExtractionError != "":
		b.WriteString("Metadata extraction failed: ")
		b.WriteString(oneLine(f.ExtractionError))
		if len(f.Facts) > 0 {
			b.WriteString("\nMetadata: ")
			writeFacts(b, f.Facts)
		}
	default:
		b.WriteString("Metadata: ")
		if len(f.Facts) == 0 {
			b.WriteString(NoMetadata)
		} else {
			writeFacts(b, f.Facts)
		}
	}
	b.WriteString("\n")
	b.WriteString(FileEnd)
}

func writeFacts(b *strings.Builder, facts domain.Facts) {
	for i, fact := range facts {
		if i > 0 {
			b.WriteString(factSep)
		}
		b.WriteString(oneLine(fact.Key))
		b.WriteString("=")
		b.WriteString(oneLine(fact.Value))
	}
}

// oneLine keeps file-supplied text from breaking the section layout.
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
