package storage

import "context"

// UploadedFile describes a stored object.
type UploadedFile struct {
	PublicID string
	URL      string
}

// StorageService defines the interface for receipt evidence storage.
type StorageService interface {
	UploadFile(ctx context.Context, localFilePath, destFolder string) (*UploadedFile, error)
	DeleteFile(ctx context.Context, publicID string) error
}
