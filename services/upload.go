package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
)

const MaxUploadSize = 10 * 1024 * 1024 // 10MB

var allowedUploadExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".jpg", ".jpeg", ".png"}

// ValidateAttachment checks if the uploaded file is within size limits and
// an accepted format
func ValidateAttachment(fileHeader *multipart.FileHeader) error {
	// Check file size
	if fileHeader.Size > MaxUploadSize {
		return fmt.Errorf("file size exceeds maximum allowed size of 10MB")
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	isAllowed := false
	for _, allowed := range allowedUploadExtensions {
		if ext == allowed {
			isAllowed = true
			break
		}
	}
	if !isAllowed {
		return fmt.Errorf("file type not allowed. Accepted formats: PDF, DOC, DOCX, TXT, JPG, PNG")
	}

	// PDFs get a content sniff on top of the extension check
	if ext == ".pdf" {
		file, err := fileHeader.Open()
		if err != nil {
			return fmt.Errorf("failed to open uploaded file: %w", err)
		}
		defer file.Close()

		buffer := make([]byte, 4)
		if _, err := io.ReadFull(file, buffer); err != nil {
			return fmt.Errorf("failed to read file content: %w", err)
		}
		if string(buffer) != "%PDF" {
			return fmt.Errorf("file is not a valid PDF")
		}
	}

	return nil
}

// UploadAttachment stores an uploaded file under the masjid's document prefix
// and returns the storage result. The filename is derived from a SHA256 hash
// of the content plus a timestamp so uploads never collide or leak the
// original name into the key.
func UploadAttachment(fileHeader *multipart.FileHeader, masjidID string) (*StorageResult, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// Calculate hash
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return nil, fmt.Errorf("failed to calculate file hash: %w", err)
	}
	hashStr := hex.EncodeToString(hash.Sum(nil))[:16] // Use first 16 chars

	// Generate filename: hash_timestamp.ext
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	fileName := fmt.Sprintf("%s_%d%s", hashStr, time.Now().Unix(), ext)
	key := fmt.Sprintf("masjids/%s/documents/%s", masjidID, fileName)

	// Reset file pointer to beginning
	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := Storage.UploadReader(ctx, file, key, contentType, fileHeader.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	result.FileOriginalName = fileHeader.Filename
	return result, nil
}

// DeleteAttachment removes a stored file by key
func DeleteAttachment(key string) error {
	if key == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
