package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"datalint/internal/logging"
)

const (
	defaultBarWidth = 30
	logEveryPercent = 10
)

// progress reports pipeline progress. On a terminal it redraws a bar in
// place; otherwise it logs every logEveryPercent percent. update is only
// ever called from the pipeline's collector goroutine.
type progress struct {
	w       io.Writer
	enabled bool
	tty     bool
	width   int
	lastPct int
	drawn   bool
	started time.Time
}

func newProgress(w io.Writer, enabled bool) *progress {
	p := &progress{w: w, enabled: enabled, width: defaultBarWidth, lastPct: -1, started: time.Now()}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			// Leave room for the counters after the bar.
			p.width = min(defaultBarWidth, max(10, cols-50))
		}
	}
	return p
}

func (p *progress) update(done, total int) {
	if !p.enabled || total <= 0 {
		return
	}
	pct := done * 100 / total

	if p.tty {
		if pct == p.lastPct && done != total {
			return
		}
		p.lastPct = pct
		p.drawn = true
		fmt.Fprintf(p.w, "\r%s", renderBar(done, total, p.width, time.Since(p.started)))
		return
	}

	step := pct / logEveryPercent * logEveryPercent
	if step > p.lastPct && step > 0 {
		p.lastPct = step
		logging.Info("Processed %d/%d images (%d%%)", done, total, step)
	}
}

func (p *progress) finish() {
	if p.drawn {
		fmt.Fprintln(p.w)
	}
}

// renderBar draws "[#####-----]  50%  5/10 images  1.2s".
func renderBar(done, total, width int, elapsed time.Duration) string {
	if total <= 0 {
		return ""
	}
	done = min(max(done, 0), total)
	filled := done * width / total

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strings.Repeat("#", filled))
	b.WriteString(strings.Repeat("-", width-filled))
	fmt.Fprintf(&b, "] %3d%%  %d/%d images  %s", done*100/total, done, total, elapsed.Round(100*time.Millisecond))
	return b.String()
}
