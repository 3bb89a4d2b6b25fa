package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/partflow/internal/logging"
)

// saveAttachment stores a drawing under the upload directory with a random
// name that keeps the original extension, and returns that name.
func (s *Service) saveAttachment(a *Attachment) (string, error) {
	if a.Content == nil {
		return "", &ValidationError{Field: "drawing", Message: "file content is missing"}
	}

	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(a.FileName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	name := uuid.NewString() + ext

	f, err := os.OpenFile(filepath.Join(s.opts.UploadDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, a.Content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return name, nil
}

// AttachmentPath returns the path of a stored drawing, or "" for names that
// would escape the upload directory.
func (s *Service) AttachmentPath(name string) string {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return ""
	}
	return filepath.Join(s.opts.UploadDir, name)
}

func (s *Service) removeAttachment(ctx context.Context, name string) {
	if err := os.Remove(filepath.Join(s.opts.UploadDir, name)); err != nil && !os.IsNotExist(err) {
		logging.FromContext(ctx).Warn("remove orphaned drawing", "file", name, "error", err)
	}
}
