// Package objectstore uploads completed archive files to durable storage.
// No object-storage or cloud SDK appears anywhere in the reference pack
// (no aws-sdk-go, minio-go, or cloud.google.com/go/storage), so the
// Uploader interface here is backed by a plain filesystem copy using the
// standard library instead of a fabricated cloud client.
package objectstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Uploader moves a completed local archive file to its durable destination.
type Uploader interface {
	Upload(localPath string) error
}

// LocalUploader copies files into a destination directory, standing in for
// a bucket upload.
type LocalUploader struct {
	DestDir string
}

// NewLocalUploader creates an Uploader rooted at destDir.
func NewLocalUploader(destDir string) *LocalUploader {
	return &LocalUploader{DestDir: destDir}
}

// Upload copies localPath into DestDir, preserving its base name.
func (u *LocalUploader) Upload(localPath string) error {
	if err := os.MkdirAll(u.DestDir, 0o755); err != nil {
		return fmt.Errorf("objectstore: create destination dir: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("objectstore: open source file: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(u.DestDir, filepath.Base(localPath))
	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("objectstore: create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("objectstore: copy %s: %w", localPath, err)
	}
	return nil
}
