package report

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/kalambet/visitlog/internal/storage"
)

// failingBlobs wraps a Memory store and fails every Put once armed.
type failingBlobs struct {
	*storage.Memory
	fail bool
}

var errDiskFull = errors.New("disk full")

func (f *failingBlobs) Put(key string, value []byte) error {
	if f.fail {
		return errDiskFull
	}
	return f.Memory.Put(key, value)
}

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	blobs := storage.NewMemory()
	s, err := NewStore(blobs)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, blobs
}

func sample(serial, customer string) Report {
	return Report{
		SerialNo:        serial,
		Date:            "2024-05-02",
		CustomerName:    customer,
		ReportNo:        "DVG 2024-25/MAY 02",
		VisitingPurpose: "Demo",
	}
}

// stripIDs drops the synthetic ids so reports compare by content.
func stripIDs(rs []Report) []Report {
	out := make([]Report, len(rs))
	for i, r := range rs {
		r.ID = ""
		out[i] = r
	}
	return out
}

func persisted(t *testing.T, blobs storage.Blobs) []Report {
	t.Helper()
	data, err := blobs.Get(storage.KeyReports)
	if err != nil {
		t.Fatalf("reading persisted reports: %v", err)
	}
	var rs []Report
	if err := json.Unmarshal(data, &rs); err != nil {
		t.Fatalf("decoding persisted reports: %v", err)
	}
	return rs
}

func TestStore_AddAndList(t *testing.T) {
	s, blobs := newTestStore(t)

	r := Report{
		SerialNo:        "1",
		Date:            "2024-05-02",
		CustomerName:    "Acme",
		ReportNo:        "DVG 2024-25/MAY 02",
		VisitingPurpose: "Demo",
	}
	stored, err := s.Add(r)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if stored.ID == "" {
		t.Error("Add did not assign an id")
	}

	list := s.List()
	if len(list) != 1 {
		t.Fatalf("List len = %d, want 1", len(list))
	}
	if !reflect.DeepEqual(stripIDs(list), []Report{r}) {
		t.Errorf("List = %+v, want %+v", list, r)
	}
	if !reflect.DeepEqual(persisted(t, blobs), list) {
		t.Error("persisted state differs from in-memory state")
	}
}

func TestStore_AddThenRemoveRestores(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add(sample("1", "Acme"))
	s.Add(sample("2", "Globex"))
	before := s.List()

	if _, err := s.Add(sample("3", "Initech")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Remove(s.Len() - 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if !reflect.DeepEqual(s.List(), before) {
		t.Errorf("List after add+remove = %+v, want %+v", s.List(), before)
	}
}

func TestStore_AddBatchAppendsInOrder(t *testing.T) {
	s, blobs := newTestStore(t)
	s.Add(sample("1", "Acme"))
	prior := s.List()

	r1, r2 := sample("2", "Globex"), sample("3", "Initech")
	added, err := s.AddBatch([]Report{r1, r2})
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(added) != 2 || added[0].ID == "" || added[1].ID == "" || added[0].ID == added[1].ID {
		t.Errorf("AddBatch ids = %+v", added)
	}

	want := append(stripIDs(prior), r1, r2)
	if got := stripIDs(s.List()); !reflect.DeepEqual(got, want) {
		t.Errorf("List = %+v, want %+v", got, want)
	}
	if got := stripIDs(persisted(t, blobs)); !reflect.DeepEqual(got, want) {
		t.Errorf("persisted = %+v, want %+v", got, want)
	}
}

func TestStore_AddBatchRollsBackOnPersistFailure(t *testing.T) {
	blobs := &failingBlobs{Memory: storage.NewMemory()}
	s, err := NewStore(blobs)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Add(sample("1", "Acme"))
	before := s.List()

	blobs.fail = true
	if _, err := s.AddBatch([]Report{sample("2", "B"), sample("3", "C")}); !errors.Is(err, errDiskFull) {
		t.Fatalf("AddBatch err = %v, want disk full", err)
	}
	if !reflect.DeepEqual(s.List(), before) {
		t.Errorf("in-memory state changed after failed AddBatch: %+v", s.List())
	}
	if !reflect.DeepEqual(persisted(t, blobs), before) {
		t.Error("persisted state changed after failed AddBatch")
	}
}

func TestStore_MutationsRollBackOnPersistFailure(t *testing.T) {
	blobs := &failingBlobs{Memory: storage.NewMemory()}
	s, _ := NewStore(blobs)
	s.Add(sample("1", "Acme"))
	s.Add(sample("2", "Globex"))
	before := s.List()

	blobs.fail = true
	if _, err := s.Add(sample("3", "C")); err == nil {
		t.Error("Add: expected error")
	}
	if err := s.Update(0, sample("9", "Changed")); err == nil {
		t.Error("Update: expected error")
	}
	if err := s.Remove(0); err == nil {
		t.Error("Remove: expected error")
	}
	if !reflect.DeepEqual(s.List(), before) {
		t.Errorf("state changed after failed mutations: %+v", s.List())
	}
}

func TestStore_AddBatchEmpty(t *testing.T) {
	s, blobs := newTestStore(t)
	added, err := s.AddBatch(nil)
	if err != nil || added != nil {
		t.Errorf("AddBatch(nil) = %v, %v", added, err)
	}
	if _, err := blobs.Get(storage.KeyReports); !errors.Is(err, storage.ErrNotFound) {
		t.Error("empty AddBatch should not write")
	}
}

func TestStore_UpdateReplacesWholesale(t *testing.T) {
	s, blobs := newTestStore(t)
	first, _ := s.Add(Report{SerialNo: "1", Date: "2024-05-02", CustomerName: "Acme", ContactPerson: "Wile", VisitingPurpose: "Demo"})

	repl := Report{ID: "ignored", SerialNo: "7", Date: "2024-06-01", CustomerName: "Acme Corp", VisitingPurpose: "Follow-up"}
	if err := s.Update(0, repl); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.At(0)
	if got.ID != first.ID {
		t.Errorf("Update changed id: %s -> %s", first.ID, got.ID)
	}
	if got.ContactPerson != "" {
		t.Errorf("ContactPerson = %q, want it cleared by wholesale replace", got.ContactPerson)
	}
	if got.SerialNo != "7" || got.CustomerName != "Acme Corp" {
		t.Errorf("At(0) = %+v", got)
	}
	if persisted(t, blobs)[0] != got {
		t.Error("update not persisted")
	}
}

func TestStore_IndexOutOfRange(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add(sample("1", "Acme"))

	for _, idx := range []int{-1, 1, 5} {
		if err := s.Update(idx, sample("2", "X")); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Update(%d) err = %v, want ErrIndexOutOfRange", idx, err)
		}
		if err := s.Remove(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Remove(%d) err = %v, want ErrIndexOutOfRange", idx, err)
		}
		if _, err := s.At(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("At(%d) err = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestStore_ByID(t *testing.T) {
	s, _ := newTestStore(t)
	a, _ := s.Add(sample("1", "Acme"))
	b, _ := s.Add(sample("2", "Globex"))
	c, _ := s.Add(sample("3", "Initech"))

	// Removing an earlier report shifts indices but not ids.
	if err := s.RemoveByID(a.ID); err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	got, idx, err := s.Get(c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if idx != 1 || got.CustomerName != "Initech" {
		t.Errorf("Get(c) = %+v at %d, want Initech at 1", got, idx)
	}

	upd := sample("2", "Globex Intl")
	if err := s.UpdateByID(b.ID, upd); err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	got, _, _ = s.Get(b.ID)
	if got.CustomerName != "Globex Intl" {
		t.Errorf("after UpdateByID: %+v", got)
	}

	if err := s.RemoveByID(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveByID(removed) err = %v, want ErrNotFound", err)
	}
	if err := s.UpdateByID("nope", upd); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateByID(unknown) err = %v, want ErrNotFound", err)
	}
	if _, _, err := s.Get(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(empty) err = %v, want ErrNotFound", err)
	}
}

func TestStore_DuplicatesAllowed(t *testing.T) {
	s, _ := newTestStore(t)
	r := sample("1", "Acme")
	s.Add(r)
	s.Add(r)
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2 (duplicates permitted)", s.Len())
	}
}

func TestStore_KeepsSuppliedIDUnlessTaken(t *testing.T) {
	s, _ := newTestStore(t)
	r := sample("1", "Acme")
	r.ID = "fixed-id"
	first, _ := s.Add(r)
	second, _ := s.Add(r)
	if first.ID != "fixed-id" {
		t.Errorf("first.ID = %q, want fixed-id", first.ID)
	}
	if second.ID == "fixed-id" || second.ID == "" {
		t.Errorf("second.ID = %q, want a fresh id", second.ID)
	}
}

func TestStore_LoadsLegacyBlob(t *testing.T) {
	blobs := storage.NewMemory()
	legacy := `[{"serialNo":"1","date":"2024-05-02","customerName":"Acme","reportNo":"DVG 2024-25/MAY 02","contactPerson":"","contactNo":"","visitingPurpose":"Demo"},
	{"serialNo":"2","date":"2024-05-03","customerName":"Globex","reportNo":"DVG 2024-25/MAY 03","visitingPurpose":"Install"}]`
	blobs.Put(storage.KeyReports, []byte(legacy))

	s, err := NewStore(blobs)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	list := s.List()
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID == "" || list[1].ID == "" || list[0].ID == list[1].ID {
		t.Errorf("legacy reports not given distinct ids: %q %q", list[0].ID, list[1].ID)
	}

	// Ids are written with the next mutation and survive a reload.
	s.Add(sample("3", "Initech"))
	reloaded, err := NewStore(blobs)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.List()[0].ID != list[0].ID {
		t.Errorf("id changed across reload: %q -> %q", list[0].ID, reloaded.List()[0].ID)
	}
}

func TestStore_CorruptBlob(t *testing.T) {
	blobs := storage.NewMemory()
	blobs.Put(storage.KeyReports, []byte(`{not json`))
	if _, err := NewStore(blobs); err == nil {
		t.Error("expected error decoding corrupt blob")
	}
}

func TestStore_PersistsEmptyArrayAfterLastRemove(t *testing.T) {
	s, blobs := newTestStore(t)
	s.Add(sample("1", "Acme"))
	s.Remove(0)

	data, _ := blobs.Get(storage.KeyReports)
	if string(data) != "[]" {
		t.Errorf("persisted = %s, want []", data)
	}
}

func TestStore_NextSerial(t *testing.T) {
	s, _ := newTestStore(t)
	if s.NextSerial() != 1 {
		t.Errorf("NextSerial(empty) = %d, want 1", s.NextSerial())
	}
	s.Add(sample("4", "Acme"))
	s.Add(sample("abc", "Globex"))
	if s.NextSerial() != 5 {
		t.Errorf("NextSerial = %d, want 5", s.NextSerial())
	}
}

func TestStore_ListIsACopy(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add(sample("1", "Acme"))
	list := s.List()
	list[0].CustomerName = "mutated"
	if got, _ := s.At(0); got.CustomerName != "Acme" {
		t.Error("List exposed internal state")
	}
}

func TestStore_IndexOf(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add(sample("1", "Acme"))
	b, _ := s.Add(sample("2", "Globex"))

	if i, err := s.IndexOf(b.ID); err != nil || i != 1 {
		t.Errorf("IndexOf = %d, %v; want 1", i, err)
	}
	s.Remove(0)
	if i, _ := s.IndexOf(b.ID); i != 0 {
		t.Errorf("IndexOf after remove = %d, want 0", i)
	}
	if _, err := s.IndexOf("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("IndexOf(missing) err = %v", err)
	}
}
