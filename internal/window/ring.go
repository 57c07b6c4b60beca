// Package window provides the fixed-capacity rolling windows the signal
// guards evaluate over. Windows are plain ring buffers owned by the replay
// loop; nothing here is safe for concurrent use and nothing needs to be.
package window

import "fmt"

// Ring is a fixed-capacity ordered window of recent samples. Once full,
// each push evicts the oldest sample.
type Ring struct {
	buf   []float64
	head  int // index of the oldest sample
	count int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		panic(fmt.Sprintf("window capacity must be positive, got %d", capacity))
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest when at capacity.
func (r *Ring) Push(v float64) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of samples currently held.
func (r *Ring) Len() int { return r.count }

// Cap returns the window capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Full reports whether the window has accumulated its full capacity.
func (r *Ring) Full() bool { return r.count == len(r.buf) }

// At returns the i-th sample counted from the oldest.
func (r *Ring) At(i int) float64 {
	if i < 0 || i >= r.count {
		panic(fmt.Sprintf("window index %d out of range [0,%d)", i, r.count))
	}
	return r.buf[(r.head+i)%len(r.buf)]
}

// Last returns the most recent sample.
func (r *Ring) Last() float64 {
	if r.count == 0 {
		panic("window is empty")
	}
	return r.At(r.count - 1)
}

// MeanFirst averages the oldest n samples.
func (r *Ring) MeanFirst(n int) float64 {
	if n <= 0 || n > r.count {
		panic(fmt.Sprintf("mean over %d samples of %d held", n, r.count))
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += r.At(i)
	}
	return sum / float64(n)
}

// Values returns a copy of the window, oldest first.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.At(i)
	}
	return out
}

// SymbolWindows groups the three per-asset windows the strategy consumes.
type SymbolWindows struct {
	Price   *Ring // quote-market price
	Counter *Ring // counter-market price
	Premium *Ring
}

// Full reports whether every window reached capacity.
func (w SymbolWindows) Full() bool {
	return w.Price.Full() && w.Counter.Full() && w.Premium.Full()
}

// Arena owns one window set per tracked symbol, keyed by the pure symbol.
type Arena struct {
	priceCap   int
	counterCap int
	windows    map[string]SymbolWindows
}

func NewArena(symbols []string, priceCap, counterCap int) *Arena {
	a := &Arena{
		priceCap:   priceCap,
		counterCap: counterCap,
		windows:    make(map[string]SymbolWindows, len(symbols)),
	}
	for _, s := range symbols {
		a.windows[s] = SymbolWindows{
			Price:   NewRing(priceCap),
			Counter: NewRing(counterCap),
			Premium: NewRing(priceCap),
		}
	}
	return a
}

// Get returns the window set for a symbol.
func (a *Arena) Get(symbol string) (SymbolWindows, bool) {
	w, ok := a.windows[symbol]
	return w, ok
}

// Warm reports whether every symbol's windows are at capacity, the
// precondition for invoking the state machines.
func (a *Arena) Warm() bool {
	for _, w := range a.windows {
		if !w.Full() {
			return false
		}
	}
	return true
}
