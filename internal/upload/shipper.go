package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/topdog/internal/logger"
	"github.com/pfrederiksen/topdog/internal/storage"
)

// DefaultFiles are the snapshot files shipped each tick
var DefaultFiles = []string{storage.TopDogsCSV, storage.ContestGoalsCSV}

// Shipper uploads snapshot files from a directory
type Shipper struct {
	dir      string
	files    []string
	uploader Uploader
	now      func() time.Time
	metrics  *logger.Metrics
}

// NewShipper creates a Shipper for files in dir
func NewShipper(dir string, files []string, uploader Uploader) *Shipper {
	if len(files) == 0 {
		files = DefaultFiles
	}
	return &Shipper{
		dir:      dir,
		files:    files,
		uploader: uploader,
		now:      time.Now,
		metrics:  logger.DefaultMetrics(),
	}
}

// ObjectKey returns the timestamped key for a local file name
func ObjectKey(name string, at time.Time) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), at.Unix(), ext)
}

// ShipResult reports what happened to each file in one Ship call
type ShipResult struct {
	Uploaded []string // object keys
	Missing  []string
	Failed   []string
}

// Ship uploads every configured file that exists. Uploaded files are removed;
// files whose upload failed stay for the next attempt.
func (s *Shipper) Ship(ctx context.Context) ShipResult {
	var result ShipResult

	for _, name := range s.files {
		path := filepath.Join(s.dir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			result.Missing = append(result.Missing, name)
			logger.Error("Unable to read file", logger.Fields{"file": path}, err)
			continue
		}

		key := ObjectKey(name, s.now())
		if err := s.uploader.Upload(ctx, key, data); err != nil {
			result.Failed = append(result.Failed, name)
			s.metrics.IncrCounter("uploads.failed")
			logger.Error("Unable to upload file", logger.Fields{"file": path, "key": key}, err)
			continue
		}

		result.Uploaded = append(result.Uploaded, key)
		s.metrics.IncrCounter("uploads.ok")
		logger.Info("Upload successful", logger.Fields{"file": path, "key": key})

		if err := os.Remove(path); err != nil {
			logger.Warn("Unable to remove file", logger.Fields{"file": path, "error": err.Error()})
			continue
		}
		logger.Debug("Removed file", logger.Fields{"file": path})
	}

	return result
}

// Run ships immediately and then once per interval until ctx is done
func (s *Shipper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() == nil {
			s.Ship(ctx)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
