package report

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kalambet/visitlog/internal/storage"
)

// Store owns the ordered report collection and writes the whole collection
// back to the blob store after every mutation.
//
// Reports can be addressed by position or by id. A position is only valid
// until the next mutation: an index captured from one listing and used after
// an insert or delete elsewhere may point at a different report. Callers that
// hold on to a report across mutations should use the id.
type Store struct {
	mu      sync.Mutex
	blobs   storage.Blobs
	reports []Report
}

// NewStore loads the persisted collection. Reports without an id (written by
// older clients) are given one; it is persisted with the next mutation.
func NewStore(blobs storage.Blobs) (*Store, error) {
	var reports []Report
	if err := loadJSON(blobs, storage.KeyReports, &reports); err != nil {
		return nil, err
	}
	s := &Store{blobs: blobs, reports: reports}
	for i := range s.reports {
		if s.reports[i].ID == "" || s.indexOfLocked(s.reports[i].ID) != i {
			s.reports[i].ID = uuid.NewString()
		}
	}
	return s, nil
}

// Add appends r and persists. The stored copy, with its id, is returned.
func (s *Store) Add(r Report) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.freshIDLocked(r.ID)
	prev := len(s.reports)
	s.reports = append(s.reports, r)
	if err := s.persistLocked(); err != nil {
		s.reports = s.reports[:prev]
		return Report{}, err
	}
	return r, nil
}

// AddBatch appends reports in order and persists once. On a persist failure
// the collection is left as it was before the call.
func (s *Store) AddBatch(reports []Report) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(reports) == 0 {
		return nil, nil
	}

	prev := len(s.reports)
	added := make([]Report, len(reports))
	for i, r := range reports {
		r.ID = s.freshIDLocked(r.ID)
		s.reports = append(s.reports, r)
		added[i] = r
	}
	if err := s.persistLocked(); err != nil {
		s.reports = s.reports[:prev]
		return nil, err
	}
	return added, nil
}

// Update replaces the report at index wholesale. The slot keeps its id.
func (s *Store) Update(index int, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(index, r)
}

// Remove deletes the report at index; later reports shift down by one.
func (s *Store) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(index)
}

// UpdateByID replaces the report with the given id.
func (s *Store) UpdateByID(id string, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.updateLocked(i, r)
}

// RemoveByID deletes the report with the given id.
func (s *Store) RemoveByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.removeLocked(i)
}

// Get returns the report with the given id and its current index.
func (s *Store) Get(id string) (Report, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return Report{}, -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.reports[i], i, nil
}

// IndexOf resolves id to the report's current index.
func (s *Store) IndexOf(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return i, nil
}

// At returns the report currently stored at index.
func (s *Store) At(index int) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndexLocked(index); err != nil {
		return Report{}, err
	}
	return s.reports[index], nil
}

// List returns a copy of the collection in storage order.
func (s *Store) List() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

// NextSerial suggests the serial number for the next entry.
func (s *Store) NextSerial() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NextSerial(s.reports)
}

func (s *Store) updateLocked(index int, r Report) error {
	if err := s.checkIndexLocked(index); err != nil {
		return err
	}
	old := s.reports[index]
	r.ID = old.ID
	s.reports[index] = r
	if err := s.persistLocked(); err != nil {
		s.reports[index] = old
		return err
	}
	return nil
}

func (s *Store) removeLocked(index int) error {
	if err := s.checkIndexLocked(index); err != nil {
		return err
	}
	prev := make([]Report, len(s.reports))
	copy(prev, s.reports)
	s.reports = append(s.reports[:index], s.reports[index+1:]...)
	if err := s.persistLocked(); err != nil {
		s.reports = prev
		return err
	}
	return nil
}

func (s *Store) checkIndexLocked(index int) error {
	if index < 0 || index >= len(s.reports) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(s.reports))
	}
	return nil
}

func (s *Store) indexOfLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range s.reports {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// freshIDLocked keeps a caller-supplied id unless it is empty or taken.
func (s *Store) freshIDLocked(id string) string {
	if id == "" || s.indexOfLocked(id) >= 0 {
		return uuid.NewString()
	}
	return id
}

func (s *Store) persistLocked() error {
	reports := s.reports
	if reports == nil {
		reports = []Report{}
	}
	return saveJSON(s.blobs, storage.KeyReports, reports, len(reports))
}
