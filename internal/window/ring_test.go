package window

import "testing"

func TestRingEviction(t *testing.T) {
	r := NewRing(3)
	for _, v := range []float64{1, 2, 3} {
		r.Push(v)
	}
	if !r.Full() {
		t.Fatalf("expected full window")
	}
	r.Push(4)
	got := r.Values()
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected values after eviction: %v", got)
		}
	}
	if r.Last() != 4 {
		t.Errorf("unexpected last: %v", r.Last())
	}
	if r.At(0) != 2 {
		t.Errorf("unexpected oldest: %v", r.At(0))
	}
}

func TestMeanFirst(t *testing.T) {
	r := NewRing(5)
	for _, v := range []float64{10, 20, 30, 40, 50} {
		r.Push(v)
	}
	if m := r.MeanFirst(3); m != 20 {
		t.Errorf("expected mean 20, got %v", m)
	}
	// Eviction shifts which samples count as "first".
	r.Push(60)
	if m := r.MeanFirst(3); m != 30 {
		t.Errorf("expected mean 30 after eviction, got %v", m)
	}
}

func TestArenaWarm(t *testing.T) {
	a := NewArena([]string{"BTC", "AXS"}, 3, 2)
	if a.Warm() {
		t.Fatalf("empty arena must not be warm")
	}

	for i := 0; i < 3; i++ {
		for _, sym := range []string{"BTC", "AXS"} {
			w, ok := a.Get(sym)
			if !ok {
				t.Fatalf("missing windows for %s", sym)
			}
			w.Price.Push(float64(i))
			w.Counter.Push(float64(i))
			w.Premium.Push(float64(i))
		}
	}
	if !a.Warm() {
		t.Fatalf("arena should be warm after capacity pushes")
	}
	if _, ok := a.Get("ETH"); ok {
		t.Errorf("unexpected windows for untracked symbol")
	}
}
