// Package metadata pulls descriptive container facts out of uploaded files.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"fnolguard/internal/domain"
)

// DefaultMaxValueLen caps the length of a single fact value.
const DefaultMaxValueLen = 256

const genericContentType = "application/octet-stream"

// Extractor derives metadata facts from file bytes. It is stateless and safe
// for concurrent use.
type Extractor struct {
	maxValueLen int
}

// NewExtractor creates an Extractor with the default value cap.
func NewExtractor() *Extractor {
	return &Extractor{maxValueLen: DefaultMaxValueLen}
}

type factSink struct {
	facts  *domain.Facts
	maxLen int
}

func (s factSink) add(key, value string) {
	s.facts.Add(key, flatten(value, s.maxLen))
}

// Extract never returns an error: failures, including panics inside a
// format parser, are reported through Extraction.Err alongside whatever
// facts were gathered before the failure.
func (e *Extractor) Extract(data []byte, contentType string) (ex domain.Extraction) {
	facts := domain.Facts{}
	sink := factSink{facts: &facts, maxLen: e.maxValueLen}

	defer func() {
		if r := recover(); r != nil {
			ex = domain.Extraction{Facts: facts, Err: fmt.Sprintf("metadata parser crashed: %v", r)}
		}
	}()

	declared := domain.NormalizeContentType(contentType)
	detected := domain.NormalizeContentType(mimetype.Detect(data).String())

	sink.add("size_bytes", strconv.Itoa(len(data)))
	if declared == "" {
		sink.add("declared_type", "unknown")
	} else {
		sink.add("declared_type", declared)
	}
	sink.add("detected_type", detected)

	effective := effectiveType(declared, detected)

	var err error
	switch domain.FamilyOf(effective) {
	case domain.FamilyImage:
		err = extractImage(data, sink)
	case domain.FamilyDocument:
		err = extractDocument(data, effective, sink)
	}

	ex = domain.Extraction{Facts: facts}
	if err != nil {
		ex.Err = err.Error()
	}
	return ex
}

// ResolveContentType returns the declared type, or the sniffed type when the
// declared one is missing or generic.
func (e *Extractor) ResolveContentType(data []byte, declared string) string {
	return effectiveType(domain.NormalizeContentType(declared), domain.NormalizeContentType(mimetype.Detect(data).String()))
}

// effectiveType falls back to the sniffed type when the client sent nothing
// useful.
func effectiveType(declared, detected string) string {
	if declared == "" || declared == genericContentType {
		return detected
	}
	return declared
}

// flatten collapses a value onto one line and caps it at maxLen runes.
func flatten(value string, maxLen int) string {
	value = strings.ToValidUTF8(value, "�")
	value = strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, value)), " ")
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		runes := []rune(value)
		value = string(runes[:maxLen])
	}
	return value
}
