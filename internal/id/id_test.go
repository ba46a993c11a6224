package id

import (
	"strings"
	"sync"
	"testing"
)

func TestNewSessionID(t *testing.T) {
	sid := NewSessionID()

	if !strings.HasPrefix(sid.String(), "sess_") {
		t.Errorf("SessionID should start with 'sess_', got: %s", sid)
	}

	parts := strings.Split(sid.String(), "_")
	if len(parts) != 2 || len(parts[1]) != 26 {
		t.Errorf("SessionID should have format 'sess_<26-char ULID>', got: %s", sid)
	}
}

func TestNewEventID(t *testing.T) {
	eid := NewEventID()

	if !strings.HasPrefix(eid.String(), "evt_") {
		t.Errorf("EventID should start with 'evt_', got: %s", eid)
	}
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		eid := NewEventID().String()
		if seen[eid] {
			t.Fatalf("Duplicate event ID: %s", eid)
		}
		seen[eid] = true
	}
}

func TestNamespacesDisjoint(t *testing.T) {
	sid := NewSessionID().String()
	eid := NewEventID().String()

	if strings.HasPrefix(sid, "evt_") || strings.HasPrefix(eid, "sess_") {
		t.Errorf("session and event namespaces overlap: %s / %s", sid, eid)
	}
}

func TestRandomHex(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{16, 16},
		{32, 32},
		{33, 33},
	}

	for _, tt := range tests {
		got := RandomHex(tt.n)
		if len(got) != tt.want {
			t.Errorf("RandomHex(%d) length = %d, want %d", tt.n, len(got), tt.want)
		}
		for _, c := range got {
			if !strings.ContainsRune("0123456789abcdef", c) {
				t.Errorf("RandomHex(%d) contains non-hex character %q in %s", tt.n, c, got)
			}
		}
	}
}

func TestRandomHexUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		h := RandomHex(32)
		if seen[h] {
			t.Fatalf("Duplicate 32-char hex: %s", h)
		}
		seen[h] = true
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const perGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan string, goroutines*perGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				idChan <- gen.Generate().String()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[string]bool)
	for id := range idChan {
		if seen[id] {
			t.Errorf("Duplicate ID in concurrent generation: %s", id)
		}
		seen[id] = true
	}
}

func BenchmarkNewEventID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewEventID()
	}
}

func BenchmarkRandomHex32(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = RandomHex(32)
	}
}
