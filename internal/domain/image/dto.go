package image

import "time"

// ImageResponse represents an image in API responses. The URL is resolved
// fresh at response time.
type ImageResponse struct {
	ID           string   `json:"id"`
	FileName     string   `json:"fileName"`
	OriginalName string   `json:"originalName"`
	Keywords     []string `json:"keywords"`
	UploadDate   string   `json:"uploadDate"`
	FileSize     int64    `json:"fileSize"`
	ContentType  string   `json:"contentType"`
	Width        int      `json:"width,omitempty"`
	Height       int      `json:"height,omitempty"`
	URL          string   `json:"url"`
}

// ImageResponseFromEntity converts a record plus its resolved URL to a
// response DTO
func ImageResponseFromEntity(r *ImageRecord, url string) *ImageResponse {
	return &ImageResponse{
		ID:           r.ID,
		FileName:     r.FileName,
		OriginalName: r.OriginalName,
		Keywords:     r.Keywords,
		UploadDate:   r.UploadDate.Format(time.RFC3339),
		FileSize:     r.FileSize,
		ContentType:  r.ContentType,
		Width:        r.Width,
		Height:       r.Height,
		URL:          url,
	}
}

// keywordsForm validates the parsed keywords field of an upload
type keywordsForm struct {
	Keywords []string `json:"keywords" validate:"max=10,dive,min=1,max=50"`
}

// ListResponse is one page of images
type ListResponse struct {
	Images     []*ImageResponse `json:"images"`
	Pagination Pagination       `json:"pagination"`
}

// UploadFailure reports one failed file of a batch upload
type UploadFailure struct {
	OriginalName string `json:"originalName"`
	Error        string `json:"error"`
}

// UploadResponse reports a single or batch upload
type UploadResponse struct {
	Images []*ImageResponse `json:"images"`
	Count  int              `json:"count"`
	Failed []UploadFailure  `json:"failed,omitempty"`
}

// StatsResponse aggregates upload statistics
type StatsResponse struct {
	TotalImages   int              `json:"totalImages"`
	TotalSize     int64            `json:"totalSize"`
	RecentUploads []*ImageResponse `json:"recentUploads"`
}

// DebugImage is the compact listing entry of the debug endpoint
type DebugImage struct {
	ID           string   `json:"id"`
	OriginalName string   `json:"originalName"`
	Keywords     []string `json:"keywords"`
	UploadDate   string   `json:"uploadDate"`
	URL          string   `json:"url"`
}
