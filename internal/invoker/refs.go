package invoker

import (
	"context"
	"fmt"
	"time"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
)

// DefaultPresignExpiry is used when Deps.PresignExpiry is unset.
const DefaultPresignExpiry = 15 * time.Minute

// FileURI returns the URI the remote model should use to fetch f: the stored
// location itself, or a presigned HTTPS URL in presigned mode.
func FileURI(ctx context.Context, deps Deps, mode string, f domain.StoredFileRef) (string, error) {
	if mode != config.ReferenceModePresigned {
		return f.Location, nil
	}
	if deps.Store == nil {
		return "", fmt.Errorf("presigning %s: %w", f.OriginalName, domain.ErrPresignUnsupported)
	}
	expiry := deps.PresignExpiry
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	url, err := deps.Store.PresignedURL(ctx, f.Location, expiry)
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", f.OriginalName, err)
	}
	return url, nil
}

// ValidateReferenceMode checks a configured reference mode.
func ValidateReferenceMode(mode string) error {
	switch mode {
	case "", config.ReferenceModeLocation, config.ReferenceModePresigned:
		return nil
	default:
		return fmt.Errorf("reference_mode must be %q or %q", config.ReferenceModeLocation, config.ReferenceModePresigned)
	}
}
