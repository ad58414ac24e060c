package models

import "time"

// FileKind distinguishes coordinate dumps from style files in storage.
type FileKind string

const (
	FileKindCoords FileKind = "coords"
	FileKindStyle  FileKind = "style"
)

// FileInfo represents metadata about an uploaded file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       FileKind  `json:"kind"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"` // "uploaded", "converting", "converted", "error"
}
