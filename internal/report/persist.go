package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/visitlog/internal/storage"
)

// loadJSON decodes the blob under key into v. A missing key leaves v untouched.
func loadJSON(blobs storage.Blobs, key string, v any) error {
	data, err := blobs.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// saveJSON overwrites the blob under key with the encoding of v.
func saveJSON(blobs storage.Blobs, key string, v any, count int) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := blobs.Put(key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	slog.Debug("blob persisted", "key", key, "count", count, "bytes", len(data))
	return nil
}
