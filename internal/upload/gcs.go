package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dghubble/sling"
)

const (
	DefaultBaseURL = "https://storage.googleapis.com"
	csvContentType = "text/csv"
	timeout        = 30 * time.Second
)

// GCSUploader uploads objects through the Cloud Storage JSON API media upload
type GCSUploader struct {
	base       *sling.Sling
	bucket     string
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// GCSOptions configures a GCSUploader
type GCSOptions struct {
	BaseURL    string
	Bucket     string
	Token      string
	MaxRetries int
}

// objectResource is the subset of the object metadata we read back
type objectResource struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
	Size   string `json:"size"`
}

// apiError is the JSON API error envelope
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError reports a non-2xx response from the object store
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("object store returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("object store returned status %d", e.StatusCode)
}

// Temporary reports whether retrying could help
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// NewGCSUploader creates an uploader for bucket
func NewGCSUploader(opts GCSOptions) (*GCSUploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	base := sling.New().
		Client(&http.Client{Timeout: timeout}).
		Base(strings.TrimRight(opts.BaseURL, "/") + "/")
	if opts.Token != "" {
		base = base.Set("Authorization", "Bearer "+opts.Token)
	}

	return &GCSUploader{
		base:       base,
		bucket:     opts.Bucket,
		maxRetries: uint64(opts.MaxRetries),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = time.Minute
			return b
		},
	}, nil
}

type uploadParams struct {
	UploadType string `url:"uploadType"`
	Name       string `url:"name"`
}

// Upload stores data under key, retrying transient failures with exponential backoff
func (u *GCSUploader) Upload(ctx context.Context, key string, data []byte) error {
	op := func() error {
		err := u.uploadOnce(ctx, key, data)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(u.newBackOff(), u.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (u *GCSUploader) uploadOnce(ctx context.Context, key string, data []byte) error {
	req, err := u.base.New().
		Post("upload/storage/v1/b/"+u.bucket+"/o").
		QueryStruct(&uploadParams{UploadType: "media", Name: key}).
		Body(bytes.NewReader(data)).
		Set("Content-Type", csvContentType).
		Request()
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	var obj objectResource
	var apiErr apiError
	resp, err := u.base.Do(req.WithContext(ctx), &obj, &apiErr)
	if err != nil {
		if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
			return &StatusError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("upload request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}
	return nil
}
