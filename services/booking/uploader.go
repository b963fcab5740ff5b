package booking

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"mindmate/models"
	"mindmate/services/storage"

	"github.com/google/uuid"
)

const receiptFolder = "mindmate/receipts"

var allowedReceiptTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// EvidenceUploader validates and stores payment receipt files. Size and
// type limits are enforced locally before any byte leaves the process.
type EvidenceUploader struct {
	Storage  storage.StorageService
	MaxBytes int64
}

func NewEvidenceUploader(store storage.StorageService, maxMB int) *EvidenceUploader {
	if maxMB <= 0 {
		maxMB = 5
	}
	return &EvidenceUploader{Storage: store, MaxBytes: int64(maxMB) << 20}
}

// ValidateReceipt rejects oversized files and disallowed types. The
// declared Content-Type is checked first; when the part carries none,
// the filename extension decides.
func (u *EvidenceUploader) ValidateReceipt(file *multipart.FileHeader) error {
	if file == nil || file.Filename == "" {
		return NewUploadError("no receipt file provided")
	}
	if file.Size > u.MaxBytes {
		return NewUploadError(fmt.Sprintf("receipt must be %d MB or smaller", u.MaxBytes>>20))
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(file.Filename))
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	if !allowedReceiptTypes[strings.TrimSpace(contentType)] {
		return NewUploadError("only PDF, JPEG and PNG receipts are accepted")
	}
	return nil
}

// Upload stores a validated receipt and returns the evidence snapshot.
// The multipart payload is spooled to a temp file first; the storage
// layer uploads by path.
func (u *EvidenceUploader) Upload(ctx context.Context, file *multipart.FileHeader) (*models.PaymentEvidence, error) {
	if err := u.ValidateReceipt(file); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, NewUploadError("could not read the receipt file")
	}
	defer src.Close()

	tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(file.Filename))
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to spool receipt: %w", err)
	}
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to spool receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to spool receipt: %w", err)
	}

	uploaded, err := u.Storage.UploadFile(ctx, tmpPath, receiptFolder)
	if err != nil {
		return nil, NewUploadError("receipt upload failed, please try again")
	}

	return &models.PaymentEvidence{
		FileURL:      uploaded.URL,
		FilePublicID: uploaded.PublicID,
		FileName:     file.Filename,
		FileSize:     file.Size,
	}, nil
}

// Discard removes a previously uploaded receipt from storage. Failure
// is non-fatal for the flow; the draft is already detached from it.
func (u *EvidenceUploader) Discard(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	return u.Storage.DeleteFile(ctx, publicID)
}
