package logbook

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kalambet/visitlog/internal/report"
)

// ErrEmptyDraft is returned when committing a draft with nothing staged.
var ErrEmptyDraft = errors.New("no entries to save")

// Draft holds entries staged in multiple-entry mode until they are committed
// together. It lives in memory only; a restart discards it.
type Draft struct {
	mu      sync.Mutex
	entries []report.Report
}

// Stage appends r to the draft.
func (d *Draft) Stage(r report.Report) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, r)
}

// Entries returns the staged entries in order.
func (d *Draft) Entries() []report.Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.entries)
}

// Len returns the number of staged entries.
func (d *Draft) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Remove discards the staged entry at i.
func (d *Draft) Remove(i int) error {
	_, err := d.Take(i)
	return err
}

// Take removes the staged entry at i and returns it so it can be edited and
// submitted again.
func (d *Draft) Take(i int) (report.Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.entries) {
		return report.Report{}, fmt.Errorf("%w: %d (have %d staged)", report.ErrIndexOutOfRange, i, len(d.entries))
	}
	r := d.entries[i]
	d.entries = slices.Delete(d.entries, i, i+1)
	return r, nil
}

// Commit appends every staged entry to store in one write and clears the
// draft. On failure the draft is kept so the caller can retry.
func (d *Draft) Commit(store *report.Store) ([]report.Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.entries) == 0 {
		return nil, ErrEmptyDraft
	}
	added, err := store.AddBatch(d.entries)
	if err != nil {
		return nil, err
	}
	d.entries = nil
	return added, nil
}

// Clear discards every staged entry and returns how many there were.
func (d *Draft) Clear() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.entries)
	d.entries = nil
	return n
}
