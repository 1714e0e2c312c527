package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandevgo/docqa/internal/core"
)

const ManifestName = "manifest.json"

// WriteManifest merges records into the manifest in dir, keyed by file path.
func WriteManifest(dir string, records []core.DownloadRecord) error {
	existing, err := ReadManifest(dir)
	if err != nil {
		return err
	}

	byPath := make(map[string]int, len(existing))
	for i, r := range existing {
		byPath[r.Path] = i
	}
	for _, r := range records {
		if i, ok := byPath[r.Path]; ok {
			existing[i] = r
			continue
		}
		byPath[r.Path] = len(existing)
		existing = append(existing, r)
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), data, 0644)
}

// ReadManifest returns the records in dir, or nothing when there is no manifest.
func ReadManifest(dir string) ([]core.DownloadRecord, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var records []core.DownloadRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return records, nil
}

// Titles maps a file stem (name without extension) to its link title.
func Titles(records []core.DownloadRecord) map[string]string {
	titles := make(map[string]string, len(records))
	for _, r := range records {
		stem := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
		titles[stem] = r.Title
	}
	return titles
}
