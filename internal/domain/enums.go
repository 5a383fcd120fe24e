package domain

import "strings"

// FraudScore is the fraud likelihood category assigned by the model.
type FraudScore string

const (
	FraudScoreLow      FraudScore = "Low"
	FraudScoreMedium   FraudScore = "Medium"
	FraudScoreHigh     FraudScore = "High"
	FraudScoreVeryHigh FraudScore = "Very High"
	FraudScoreUnknown  FraudScore = "Unknown"
)

var fraudScoreRank = map[FraudScore]int{
	FraudScoreLow:      1,
	FraudScoreMedium:   2,
	FraudScoreHigh:     3,
	FraudScoreVeryHigh: 4,
}

// Rank orders scores from Low (1) to Very High (4). Unknown ranks 0.
func (s FraudScore) Rank() int {
	return fraudScoreRank[s]
}

// AtLeast reports whether s is a known score at or above min.
func (s FraudScore) AtLeast(min FraudScore) bool {
	return s.Rank() > 0 && min.Rank() > 0 && s.Rank() >= min.Rank()
}

// ParseFraudScore maps a configuration string such as "very_high" or "High"
// to a FraudScore. Unrecognized values map to FraudScoreUnknown.
func ParseFraudScore(s string) FraudScore {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch norm {
	case "low":
		return FraudScoreLow
	case "medium":
		return FraudScoreMedium
	case "high":
		return FraudScoreHigh
	case "very high", "veryhigh":
		return FraudScoreVeryHigh
	default:
		return FraudScoreUnknown
	}
}

// ContentFamily groups content types by extraction strategy.
type ContentFamily string

const (
	FamilyImage    ContentFamily = "image"
	FamilyDocument ContentFamily = "document"
	FamilyOther    ContentFamily = "other"
)

// Well-known content types handled by the extractors.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeText = "text/plain"
	ContentTypeCSV  = "text/csv"
)

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/tiff": true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
}

var documentContentTypes = map[string]bool{
	ContentTypePDF:  true,
	ContentTypeXLSX: true,
	ContentTypeText: true,
	ContentTypeCSV:  true,
}

// NormalizeContentType lower-cases a MIME type and strips parameters.
func NormalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// FamilyOf returns the content family of a MIME type.
func FamilyOf(contentType string) ContentFamily {
	ct := NormalizeContentType(contentType)
	switch {
	case imageContentTypes[ct]:
		return FamilyImage
	case documentContentTypes[ct]:
		return FamilyDocument
	default:
		return FamilyOther
	}
}
