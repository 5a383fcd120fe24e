package port

import "fnolguard/internal/domain"

// MetadataExtractor derives descriptive facts from an in-memory file. It never
// panics; failures are reported in the returned Extraction.
type MetadataExtractor interface {
	Extract(data []byte, contentType string) domain.Extraction
	ResolveContentType(data []byte, declared string) string
}

// TextExtractor pulls plain text out of document-family files.
type TextExtractor interface {
	ExtractText(data []byte, contentType string, limit int) (string, error)
}
