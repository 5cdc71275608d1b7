// Package console prints human-readable flight status lines, throttled on
// mission elapsed time rather than wall-clock time.
package console

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// epoch anchors mission elapsed time on a time.Time axis for the limiter.
var epoch = time.Unix(0, 0).UTC()

// Printer writes status lines to w.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	limiter *rate.Limiter
}

// NewPrinter returns a Printer that lets at most one throttled line through
// per interval of mission time. The first line always passes, whatever its MET.
// A non-positive interval disables throttling.
func NewPrinter(w io.Writer, interval time.Duration) *Printer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Printer{
		w:       w,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Printf writes a throttled line stamped with met, in seconds. It reports
// whether the line was written.
func (p *Printer) Printf(met float64, format string, args ...any) bool {
	if math.IsNaN(met) {
		return false
	}
	at := epoch.Add(time.Duration(met * float64(time.Second)))

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.limiter.AllowN(at, 1) {
		return false
	}
	fmt.Fprintf(p.w, format+"\n", args...)
	return true
}

// Println writes an unthrottled line. Used for one-off milestones.
func (p *Printer) Println(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}
