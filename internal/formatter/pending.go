package formatter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/services"
)

// PendingFilename is the planning file name for service at t, e.g. youtube_pending_add_20240131_235959.txt
func PendingFilename(service models.Service, t time.Time) string {
	return fmt.Sprintf("%s_pending_add_%s.txt", service, t.Format("20060102_150405"))
}

// WritePendingExport writes one link per line for identifiers that still need adding to service.
// The directory is created when missing. Returns the written path.
func WritePendingExport(dir string, service models.Service, ids []string, now time.Time) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("no pending identifiers to export")
	}
	if dir == "" {
		dir = "out"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, PendingFilename(service, now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create planning file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range ids {
		if _, err := fmt.Fprintln(w, services.ExportURL(service, id)); err != nil {
			return "", fmt.Errorf("failed to write planning file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to write planning file: %w", err)
	}
	return path, nil
}
