package domain

import (
	"bytes"
	"encoding/json"
)

// UploadedFile is one file part of an inbound analysis request.
type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoredFileRef points at a file persisted in the blob store.
type StoredFileRef struct {
	Location     string `json:"location"`
	ContentType  string `json:"content_type"`
	OriginalName string `json:"filename"`
}

// Fact is a single descriptive key/value pair extracted from a file.
type Fact struct {
	Key   string
	Value string
}

// Facts is an ordered string mapping. Insertion order is preserved so that
// prompts built from it are reproducible.
type Facts []Fact

// Add appends a fact, replacing the value in place if the key already exists.
// Empty values are skipped.
func (f *Facts) Add(key, value string) {
	if value == "" {
		return
	}
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Fact{Key: key, Value: value})
}

// Get returns the value stored for key.
func (f Facts) Get(key string) (string, bool) {
	for _, fact := range f {
		if fact.Key == key {
			return fact.Value, true
		}
	}
	return "", false
}

// MarshalJSON encodes the facts as a JSON object in insertion order.
func (f Facts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fact := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(fact.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fact.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Extraction is the outcome of metadata extraction for one file. Err is set
// when extraction failed; Facts may still hold the derived facts.
type Extraction struct {
	Facts Facts
	Err   string
}

// FileMetadata describes one submitted file as it is presented to the model.
// Ref is nil when the file never reached the blob store.
type FileMetadata struct {
	OriginalName    string         `json:"filename"`
	ContentType     string         `json:"content_type"`
	Ref             *StoredFileRef `json:"-"`
	Facts           Facts          `json:"metadata"`
	ExtractionError string         `json:"extraction_error,omitempty"`
	UploadError     string         `json:"upload_error,omitempty"`
}

// Location returns the stored location, or an empty string if upload failed.
func (m FileMetadata) Location() string {
	if m.Ref == nil {
		return ""
	}
	return m.Ref.Location
}

// MarshalJSON adds the location to the encoded form.
func (m FileMetadata) MarshalJSON() ([]byte, error) {
	type alias FileMetadata
	facts := m.Facts
	if facts == nil {
		facts = Facts{}
	}
	return json.Marshal(struct {
		alias
		Location string `json:"location,omitempty"`
		Facts    Facts  `json:"metadata"`
	}{alias: alias(m), Location: m.Location(), Facts: facts})
}

// AnalysisRequest is one inbound request to analyze a claim.
type AnalysisRequest struct {
	Model     string
	Narrative string
	Files     []UploadedFile
}

// ModelReply is the raw text returned by a model.
type ModelReply struct {
	RawText   string
	ModelUsed string
}

// FraudAssessment is the structured interpretation of a model reply.
type FraudAssessment struct {
	Score      FraudScore `json:"fraudConfidenceScore"`
	Rationale  []string   `json:"rationale"`
	RawPreview string     `json:"raw_ai_response_preview"`
}

// FileWarning reports a file-scoped failure.
type FileWarning struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// AnalysisResult is returned to the caller for a successful analysis.
type AnalysisResult struct {
	Assessment   FraudAssessment
	FileWarnings []FileWarning
	Files        []FileMetadata
	Model        string
}
