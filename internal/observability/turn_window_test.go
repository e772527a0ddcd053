package observability

import "testing"

func TestTurnWindowSnapshot(t *testing.T) {
	w := newTurnWindow(8)
	for _, ms := range []float64{10, 20, 30, 40} {
		w.Observe("ws", ms)
	}
	w.Observe("http", 5)

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Modes) != 2 {
		t.Fatalf("len(Modes) = %d, want 2", len(snap.Modes))
	}
	// Modes come back sorted by name.
	if snap.Modes[0].Mode != "http" || snap.Modes[1].Mode != "ws" {
		t.Fatalf("mode order = %s, %s", snap.Modes[0].Mode, snap.Modes[1].Mode)
	}

	ws := snap.Modes[1]
	if ws.Samples != 4 || ws.LastMS != 40 || ws.AvgMS != 25 {
		t.Fatalf("ws stats = %+v", ws)
	}
	if ws.P50MS != 25 {
		t.Fatalf("P50 = %v, want 25", ws.P50MS)
	}
}

func TestTurnWindowWrapsRing(t *testing.T) {
	w := newTurnWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("ws", float64(i))
	}
	snap := w.Snapshot()
	if len(snap.Modes) != 1 {
		t.Fatalf("len(Modes) = %d, want 1", len(snap.Modes))
	}
	got := snap.Modes[0]
	if got.Samples != 4 {
		t.Fatalf("Samples = %d, want ring capacity 4", got.Samples)
	}
	// Only the newest four samples (6..9) remain.
	if got.AvgMS != 7.5 || got.LastMS != 9 {
		t.Fatalf("stats = %+v", got)
	}
}

func TestTurnWindowIgnoresInvalidSamples(t *testing.T) {
	w := newTurnWindow(4)
	w.Observe("", 10)
	w.Observe("ws", -1)
	if got := len(w.Snapshot().Modes); got != 0 {
		t.Fatalf("len(Modes) = %d, want 0", got)
	}
}
