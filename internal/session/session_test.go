package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/wattsonlabs/wattson/pkg/models"
)

func TestAppendAssignsSequences(t *testing.T) {
	store := NewStore()
	id := store.NewSession()

	for want := uint64(1); want <= 3; want++ {
		seq, err := store.Append(id, models.AnalysisRecord{Mode: models.ModeHybrid})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if seq != want {
			t.Errorf("sequence = %d, want %d", seq, want)
		}
	}

	records, err := store.Records(id)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Sequence != uint64(i+1) {
			t.Errorf("records[%d].Sequence = %d, want %d", i, r.Sequence, i+1)
		}
	}
}

func TestConcurrentAppendsAreGapless(t *testing.T) {
	store := NewStore()
	id := store.NewSession()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Append(id, models.AnalysisRecord{}); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	records, err := store.Records(id)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != n {
		t.Fatalf("expected %d records, got %d", n, len(records))
	}
	seen := make(map[uint64]bool, n)
	for _, r := range records {
		if r.Sequence < 1 || r.Sequence > n {
			t.Errorf("sequence %d out of range", r.Sequence)
		}
		if seen[r.Sequence] {
			t.Errorf("duplicate sequence %d", r.Sequence)
		}
		seen[r.Sequence] = true
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	store := NewStore()
	id := store.NewSession()
	if _, err := store.Append(id, models.AnalysisRecord{Mode: models.ModeSequential}); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, _ := store.Records(id)
	first[0].Mode = models.ModeParallel

	again, _ := store.Records(id)
	if again[0].Mode != models.ModeSequential {
		t.Error("mutating the returned slice must not affect the store")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store := NewStore()
	a := store.NewSession()
	b := store.NewSession()

	if _, err := store.Append(a, models.AnalysisRecord{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	recordsB, err := store.Records(b)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(recordsB) != 0 {
		t.Errorf("session b should be empty, got %d records", len(recordsB))
	}

	seqB, err := store.Append(b, models.AnalysisRecord{})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if seqB != 1 {
		t.Errorf("sessions must number independently, got %d", seqB)
	}
}

func TestCloseDropsRecords(t *testing.T) {
	store := NewStore()
	id := store.NewSession()
	if _, err := store.Append(id, models.AnalysisRecord{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	store.Close(id)

	if _, err := store.Records(id); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := store.Append(id, models.AnalysisRecord{}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("append after close should fail, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected no live sessions, got %d", store.Len())
	}
}
