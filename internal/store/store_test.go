package store

import (
	"path/filepath"
	"testing"

	"github.com/thsensai/sensai/internal/ioc"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSet() *ioc.Set {
	s := ioc.NewSet()
	s.Extend(
		ioc.New("domain", "evil.example", "c2"),
		ioc.New("ip", "10.0.0.5", "beaconing"),
	)
	s.Merge()
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := testStore(t)

	id, err := s.SaveRun("report.txt", "ollama/qwen2.5:14b", 2600, 300, testSet())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == 0 {
		t.Error("run id = 0")
	}

	run, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Source != "report.txt" || run.Model != "ollama/qwen2.5:14b" {
		t.Errorf("run = %+v", run)
	}
	if run.ChunkSize != 2600 || run.ChunkOverlap != 300 {
		t.Errorf("params = %d/%d", run.ChunkSize, run.ChunkOverlap)
	}
	if run.IOCCount != 2 {
		t.Errorf("IOCCount = %d, want 2", run.IOCCount)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetRun(999); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestRunIOCsPreservesOrder(t *testing.T) {
	s := testStore(t)
	saved := testSet()

	id, err := s.SaveRun("report.txt", "m", 2600, 300, saved)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := s.RunIOCs(id)
	if err != nil {
		t.Fatalf("RunIOCs: %v", err)
	}
	if loaded.Len() != saved.Len() {
		t.Fatalf("Len = %d, want %d", loaded.Len(), saved.Len())
	}
	for i := range saved.IOCs {
		if loaded.IOCs[i] != saved.IOCs[i] {
			t.Errorf("row %d = %+v, want %+v", i, loaded.IOCs[i], saved.IOCs[i])
		}
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := testStore(t)
	for _, source := range []string{"a.txt", "b.txt", "c.txt"} {
		if _, err := s.SaveRun(source, "m", 100, 10, testSet()); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs", len(runs))
	}
	if runs[0].Source != "c.txt" || runs[2].Source != "a.txt" {
		t.Errorf("order = %s, %s, %s", runs[0].Source, runs[1].Source, runs[2].Source)
	}
}

func TestListRunsLimit(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 5; i++ {
		if _, err := s.SaveRun("x.txt", "m", 100, 10, testSet()); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestNewStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sensai.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if _, err := s.SaveRun("x", "m", 100, 10, testSet()); err != nil {
		t.Errorf("SaveRun on fresh db: %v", err)
	}
}
