package storage

import (
	"fmt"
	"strings"

	"fnolguard/internal/domain"
)

// Scheme is the URI scheme used for stored object locations.
const Scheme = "s3"

// Location identifies one object in a bucket.
type Location struct {
	Bucket string
	Key    string
}

// String renders the location as s3://bucket/key.
func (l Location) String() string {
	return fmt.Sprintf("%s://%s/%s", Scheme, l.Bucket, l.Key)
}

// ParseLocation parses an s3://bucket/key URI.
func ParseLocation(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, Scheme+"://")
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", domain.ErrInvalidLocation, uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, fmt.Errorf("%w: %q", domain.ErrInvalidLocation, uri)
	}
	return Location{Bucket: bucket, Key: key}, nil
}
