package upload

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Uploader stores an object under key
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

// DryRunUploader prints what would be uploaded without contacting the store
type DryRunUploader struct {
	out io.Writer
}

// NewDryRunUploader creates a dry-run uploader writing to out, or stdout if nil
func NewDryRunUploader(out io.Writer) *DryRunUploader {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunUploader{out: out}
}

// Upload prints the key and size
func (u *DryRunUploader) Upload(ctx context.Context, key string, data []byte) error {
	fmt.Fprintf(u.out, "--- Upload %s ---\n(Size: %d bytes)\n", key, len(data))
	return nil
}
