package image

import (
	"strings"
	"time"
)

// ImageRecord is the metadata for one stored image. Records are created once
// by the upload pipeline and never updated in place.
type ImageRecord struct {
	ID           string    `json:"id"`
	StorageKey   string    `json:"-"` // backend locator, not exposed
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	Keywords     []string  `json:"keywords"`
	UploadDate   time.Time `json:"uploadDate"`
	FileSize     int64     `json:"fileSize"`
	ContentType  string    `json:"contentType"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
}

// Matches reports whether any token is a case-insensitive substring of any
// keyword or of the original file name. Tokens are expected lowercased.
func (r *ImageRecord) Matches(tokens []string) bool {
	name := strings.ToLower(r.OriginalName)
	for _, token := range tokens {
		if strings.Contains(name, token) {
			return true
		}
		for _, keyword := range r.Keywords {
			if strings.Contains(strings.ToLower(keyword), token) {
				return true
			}
		}
	}
	return false
}

// Clone returns a copy safe to hand out from an in-process store.
func (r *ImageRecord) Clone() *ImageRecord {
	clone := *r
	clone.Keywords = append([]string(nil), r.Keywords...)
	return &clone
}
