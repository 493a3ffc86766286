package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cliptube/backend/internal/logging"
)

func formFile(r *http.Request, field string) (*multipart.FileHeader, bool) {
	if r.MultipartForm == nil {
		return nil, false
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, false
	}
	return files[0], true
}

// uploadMedia stages the multipart part to a local temp file, hands the path
// to the media store, and removes the temp file on both the success and the
// failure path.
func uploadMedia(ctx context.Context, media MediaStorage, key string, file *multipart.FileHeader) (string, error) {
	if media == nil {
		return "", fmt.Errorf("media storage unavailable")
	}

	ctx, span := logging.StartSpan(ctx, "media-upload")
	defer span.End()

	path, err := stageUpload(file)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	return media.SaveFile(ctx, key, path)
}

// stageUpload copies the part to a temp file and returns its path. The caller
// removes the file when done.
func stageUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open multipart file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "cliptube-upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), nil
}
