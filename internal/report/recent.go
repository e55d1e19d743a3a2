package report

import (
	"slices"
	"sync"

	"github.com/kalambet/visitlog/internal/storage"
)

// MaxRecent is the number of submissions the recent list keeps.
const MaxRecent = 5

// Recent keeps the last MaxRecent submitted reports, newest first.
type Recent struct {
	mu      sync.Mutex
	blobs   storage.Blobs
	entries []Report
}

func LoadRecent(blobs storage.Blobs) (*Recent, error) {
	var entries []Report
	if err := loadJSON(blobs, storage.KeyRecentEntries, &entries); err != nil {
		return nil, err
	}
	if len(entries) > MaxRecent {
		entries = entries[:MaxRecent]
	}
	return &Recent{blobs: blobs, entries: entries}, nil
}

// Push records r as the newest entry, evicting the oldest past MaxRecent.
func (rc *Recent) Push(r Report) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	prev := rc.entries
	next := make([]Report, 0, MaxRecent)
	next = append(next, r)
	next = append(next, prev...)
	if len(next) > MaxRecent {
		next = next[:MaxRecent]
	}
	rc.entries = next
	if err := saveJSON(rc.blobs, storage.KeyRecentEntries, rc.entries, len(rc.entries)); err != nil {
		rc.entries = prev
		return err
	}
	return nil
}

// Entries returns the recent reports, newest first.
func (rc *Recent) Entries() []Report {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.entries)
}
