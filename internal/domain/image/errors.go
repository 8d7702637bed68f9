package image

import "errors"

var (
	ErrImageNotFound   = errors.New("image not found")
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrInvalidFileType = errors.New("file type not allowed")
	ErrStorageWrite    = errors.New("failed to write image to storage")
	ErrMetadataWrite   = errors.New("failed to persist image metadata")
)
