package invoker

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"fnolguard/internal/domain"
)

// Markers around document text appended to a prompt.
const (
	inlineStart = "--- Extracted Text: "
	inlineEnd   = "--- End Extracted Text ---"
)

// InlineDocuments appends the text of every document-family file to prompt.
// Files are read back from the blob store and converted locally, so the
// remote model never has to fetch them. A file that cannot be read or
// converted gets a one-line note instead of its text.
func InlineDocuments(ctx context.Context, deps Deps, prompt string, files []domain.StoredFileRef) string {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var b strings.Builder
	b.WriteString(prompt)

	for _, f := range files {
		if domain.FamilyOf(f.ContentType) != domain.FamilyDocument {
			continue
		}
		b.WriteString("\n")
		b.WriteString(inlineStart)
		b.WriteString(f.OriginalName)
		b.WriteString(" ---\n")
		b.WriteString(documentText(ctx, deps, log, f))
		b.WriteString("\n")
		b.WriteString(inlineEnd)
		b.WriteString("\n")
	}
	return b.String()
}

func documentText(ctx context.Context, deps Deps, log *zap.Logger, f domain.StoredFileRef) string {
	if deps.Store == nil || deps.Text == nil {
		return "[text not available]"
	}
	data, err := deps.Store.Get(ctx, f.Location)
	if err != nil {
		log.Warn("invoker.InlineDocuments: fetch failed",
			zap.String("filename", f.OriginalName), zap.String("location", f.Location), zap.Error(err))
		return "[text not available: file could not be read back from storage]"
	}
	text, err := deps.Text.ExtractText(data, f.ContentType, deps.InlineTextLimit)
	if err != nil {
		log.Warn("invoker.InlineDocuments: text extraction failed",
			zap.String("filename", f.OriginalName), zap.Error(err))
		return "[text not available: " + err.Error() + "]"
	}
	if strings.TrimSpace(text) == "" {
		return "[no text layer found]"
	}
	return text
}
