package breadcrumbs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Uploader ships a local photo to remote storage and returns the remote
// path the server assigned.
type Uploader interface {
	Upload(ctx context.Context, sessionID, breadcrumbID, localPath string) (string, error)
}

// Ensure HTTPUploader implements the Uploader interface
var _ Uploader = (*HTTPUploader)(nil)

// HTTPUploader posts photos to the media endpoint as multipart form data.
// Every request is bounded by the client timeout so a dead network fails
// fast instead of wedging the capture path.
type HTTPUploader struct {
	baseURL string
	client  *http.Client
}

func NewHTTPUploader(baseURL string, timeout time.Duration) *HTTPUploader {
	return &HTTPUploader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type uploadReply struct {
	RemotePath string `json:"remote_path"`
}

// Upload sends the file and returns the server-assigned remote path.
func (u *HTTPUploader) Upload(ctx context.Context, sessionID, breadcrumbID, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open photo: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("photo", filepath.Base(localPath))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(form.Close())
	}()

	url := fmt.Sprintf("%s/sessions/%s/breadcrumbs/%s", u.baseURL, sessionID, breadcrumbID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}

	var reply uploadReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("failed to decode upload reply: %w", err)
	}
	if reply.RemotePath == "" {
		return "", fmt.Errorf("upload reply missing remote path")
	}
	return reply.RemotePath, nil
}
