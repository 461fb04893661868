package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/AUMikkel/survey-scripts/internal/reference"
)

func sampleRecords() []reference.Record {
	return []reference.Record{
		{Title: "Paper A", DOI: "10.1/a", ScopusID: "111", Year: "2020", Type: "Article"},
		{Title: "", DOI: "", ScopusID: "", Year: "", Type: "Review"},
	}
}

// mustPut inserts records for seed or fails the test.
func mustPut(t *testing.T, s *Store, seed string, records []reference.Record) {
	t.Helper()
	if err := s.Put(seed, records); err != nil {
		t.Fatalf("Put(%q): %v", seed, err)
	}
}

// writeFile writes content to name in a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad_NonExistentFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	s, err := Load(writeFile(t, "store.json", ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"array instead of object", `[]`},
		{"entry not an array", `{"1": {"title": "x"}}`},
		{"record field wrong type", `{"1": [{"title": 5}]}`},
		{"truncated", `{"1": [`},
		{"trailing data", `{} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "store.json", tt.content)); err == nil {
				t.Errorf("Load(%s) expected error", tt.content)
			}
		})
	}
}

func TestPut_AppendOnly(t *testing.T) {
	s := New()
	mustPut(t, s, "A", sampleRecords())

	if err := s.Put("A", nil); !errors.Is(err, ErrExists) {
		t.Errorf("Put(existing) error = %v, want ErrExists", err)
	}

	records, ok := s.Records("A")
	if !ok {
		t.Fatal("Records(A) not found")
	}
	if !reflect.DeepEqual(records, sampleRecords()) {
		t.Errorf("Records(A) = %+v, want original records", records)
	}

	if err := s.Put("", nil); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Put(\"\") error = %v, want ErrEmptyKey", err)
	}
}

func TestPut_NilIsEmptyResultSet(t *testing.T) {
	s := New()
	mustPut(t, s, "Z", nil)

	if !s.Has("Z") {
		t.Error("Has(Z) = false")
	}
	records, ok := s.Records("Z")
	if !ok || len(records) != 0 {
		t.Errorf("Records(Z) = %v, %v; want empty, true", records, ok)
	}

	data, err := s.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if want := "{\n  \"Z\": []\n}\n"; string(data) != want {
		t.Errorf("Encode() = %q, want %q", data, want)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s := New()
	mustPut(t, s, "B", sampleRecords())
	mustPut(t, s, "A", nil)
	mustPut(t, s, "C", sampleRecords()[:1])
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := loaded.Keys(), []string{"B", "A", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	for _, key := range s.Keys() {
		want, _ := s.Records(key)
		got, ok := loaded.Records(key)
		if !ok {
			t.Errorf("Records(%s) not found after reload", key)
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Records(%s) = %+v, want %+v", key, got, want)
		}
	}
	if n := loaded.RecordCount(); n != 3 {
		t.Errorf("RecordCount() = %d, want 3", n)
	}

	// A second save of the reloaded store is byte-identical.
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("second save differs:\n%s\nvs\n%s", first, second)
	}
}

func TestSave_PreservesForeignEntryBytes(t *testing.T) {
	// Written by another tool: escaped non-ASCII, indent 2.
	content := "{\n  \"A\": [\n    {\n      \"title\": \"Caf\\u00e9\",\n      \"doi\": \"\",\n      \"scopus_id\": \"9\",\n      \"year\": \"2001\",\n      \"type\": \"Article\"\n    }\n  ]\n}\n"
	path := writeFile(t, "store.json", content)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Errorf("Save() rewrote entry:\n%s\nwant\n%s", got, content)
	}

	records, _ := s.Records("A")
	if records[0].Title != "Café" {
		t.Errorf("Title = %q, want %q", records[0].Title, "Café")
	}
}

func TestLoad_NullEntryIsEmptyResultSet(t *testing.T) {
	s, err := Load(writeFile(t, "store.json", `{"A": null}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	records, ok := s.Records("A")
	if !ok || len(records) != 0 {
		t.Errorf("Records(A) = %v, %v; want empty, true", records, ok)
	}
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	s := New()
	mustPut(t, s, "A", sampleRecords())
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	mustPut(t, s, "B", nil)
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "store.json" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("dir contains %v, want only store.json", names)
	}
}

func TestSave_UnwritableDirectory(t *testing.T) {
	s := New()
	mustPut(t, s, "A", nil)
	if err := s.Save(filepath.Join(t.TempDir(), "missing", "store.json")); err == nil {
		t.Error("Save() into missing directory expected error")
	}
}

func TestMerge_FirstWins(t *testing.T) {
	a := New()
	mustPut(t, a, "1", sampleRecords())
	mustPut(t, a, "2", nil)

	b, err := Decode([]byte(`{"2": [{"title": "later"}], "3": [ ], "4": []}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	added, conflicts := a.Merge(b)
	if added != 2 {
		t.Errorf("Merge() added = %d, want 2", added)
	}
	if !reflect.DeepEqual(conflicts, []string{"2"}) {
		t.Errorf("Merge() conflicts = %v, want [2]", conflicts)
	}
	if got, want := a.Keys(), []string{"1", "2", "3", "4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	if two, _ := a.Records("2"); len(two) != 0 {
		t.Errorf("Records(2) = %+v, want existing empty result set", two)
	}
	if three, ok := a.Records("3"); !ok || len(three) != 0 {
		t.Errorf("Records(3) = %v, %v; want empty, true", three, ok)
	}

	// The source store is not modified.
	if got, want := b.Keys(), []string{"2", "3", "4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("source Keys() = %v, want %v", got, want)
	}
}
