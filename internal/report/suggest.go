package report

import (
	"slices"
	"strings"
	"sync"

	"github.com/kalambet/visitlog/internal/storage"
)

// Suggestions is an append-only, deduplicated list of strings used to
// complete customer names and visit purposes.
type Suggestions struct {
	mu     sync.Mutex
	blobs  storage.Blobs
	key    string
	values []string
}

// LoadSuggestions reads the list stored under key.
func LoadSuggestions(blobs storage.Blobs, key string) (*Suggestions, error) {
	var values []string
	if err := loadJSON(blobs, key, &values); err != nil {
		return nil, err
	}
	s := &Suggestions{blobs: blobs, key: key}
	for _, v := range values {
		if v != "" && !slices.Contains(s.values, v) {
			s.values = append(s.values, v)
		}
	}
	return s, nil
}

// Add records value and reports whether it was new. Empty values are ignored.
func (s *Suggestions) Add(value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" || slices.Contains(s.values, value) {
		return false, nil
	}
	s.values = append(s.values, value)
	if err := saveJSON(s.blobs, s.key, s.values, len(s.values)); err != nil {
		s.values = s.values[:len(s.values)-1]
		return false, err
	}
	return true, nil
}

// Values returns every suggestion in insertion order.
func (s *Suggestions) Values() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.values)
}

// Match returns the suggestions containing input, ignoring case. An empty
// input matches nothing.
func (s *Suggestions) Match(input string) []string {
	needle := strings.ToLower(input)
	if needle == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, v := range s.values {
		if strings.Contains(strings.ToLower(v), needle) {
			out = append(out, v)
		}
	}
	return out
}
