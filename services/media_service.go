package services

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FolderPostImages     = "post_images"
	FolderCampaignImages = "campaign_pool"
	FolderClientLogos    = "client_logos"
)

var ErrInvalidMedia = errors.New("invalid media")

var allowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}

// MediaService stores images on the local filesystem. Paths handed out are
// relative to the storage root and use forward slashes so they can be
// appended to the public media URL.
type MediaService struct {
	storagePath string
	maxSize     int64
	create      func(name string) (io.WriteCloser, error)
}

func createFile(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

func NewMediaService(storagePath string, maxSize int64) *MediaService {
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	return &MediaService{storagePath: storagePath, maxSize: maxSize, create: createFile}
}

// SaveUpload validates and writes an uploaded image under folder.
func (s *MediaService) SaveUpload(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	if err := s.validateFile(file); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, src); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}
	fileHash := fmt.Sprintf("%x", hash.Sum(nil))

	name := fmt.Sprintf("%s_%d%s", fileHash[:8], time.Now().Unix(), strings.ToLower(filepath.Ext(file.Filename)))
	return s.write(ctx, src, folder, name)
}

// Duplicate copies the file at relPath into folder under a fresh name. The
// copy is independent of the source, so deleting one leaves the other intact.
func (s *MediaService) Duplicate(ctx context.Context, relPath, folder string) (string, error) {
	abs, err := s.resolve(relPath)
	if err != nil {
		return "", err
	}
	src, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("failed to open source image: %w", err)
	}
	defer src.Close()

	name := uuid.NewString()[:8] + "_" + filepath.Base(relPath)
	return s.write(ctx, src, folder, name)
}

// Path returns the absolute filesystem path of a stored file.
func (s *MediaService) Path(relPath string) (string, error) {
	return s.resolve(relPath)
}

func (s *MediaService) write(ctx context.Context, src io.Reader, folder, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.storagePath, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	filePath := filepath.Join(dir, name)
	dst, err := s.create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	// a failed close can leave a truncated image behind
	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return filepath.ToSlash(filepath.Join(folder, name)), nil
}

func (s *MediaService) resolve(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if relPath == "" || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: bad path %q", ErrInvalidMedia, relPath)
	}
	return filepath.Join(s.storagePath, clean), nil
}

func (s *MediaService) validateFile(file *multipart.FileHeader) error {
	if file == nil {
		return fmt.Errorf("%w: no file", ErrInvalidMedia)
	}
	if file.Size > s.maxSize {
		return fmt.Errorf("%w: file size exceeds %d bytes", ErrInvalidMedia, s.maxSize)
	}
	mimeType := file.Header.Get("Content-Type")
	if !contains(allowedImageTypes, mimeType) {
		return fmt.Errorf("%w: invalid image type: %s", ErrInvalidMedia, mimeType)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
