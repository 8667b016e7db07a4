package favorites

import (
	"sync"
	"testing"
)

func TestStore_AddRemoveContains(t *testing.T) {
	s := NewStore()

	if !s.Add("bitcoin") {
		t.Error("first add should report true")
	}
	if s.Add("bitcoin") {
		t.Error("duplicate add should report false")
	}
	if !s.Contains("bitcoin") {
		t.Error("expected bitcoin to be a favorite")
	}

	if !s.Remove("bitcoin") {
		t.Error("remove of existing favorite should report true")
	}
	if s.Remove("bitcoin") {
		t.Error("remove of absent favorite should report false")
	}
	if s.Contains("bitcoin") {
		t.Error("bitcoin should be gone")
	}
}

func TestStore_RejectsEmptyID(t *testing.T) {
	s := NewStore()
	if s.Add("") {
		t.Error("empty id must not be accepted")
	}
}

func TestStore_SnapshotSorted(t *testing.T) {
	s := NewStore()
	s.Add("ethereum")
	s.Add("bitcoin")
	s.Add("cardano")

	got := s.Snapshot()
	want := []string{"bitcoin", "cardano", "ethereum"}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("bitcoin")
			s.Contains("bitcoin")
			s.Snapshot()
			s.Remove("bitcoin")
		}()
	}
	wg.Wait()
}
