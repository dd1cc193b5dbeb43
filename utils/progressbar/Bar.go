// Package progressbar draws a single-line progress bar of training
// episodes on a terminal
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samuelfneumann/crowdnav/utils/floatutils"
)

// Bar is a progress bar that is redrawn in place whenever Display is
// called. A Bar is not safe for concurrent use.
type Bar struct {
	out     io.Writer
	width   int
	total   int
	done    int
	started time.Time
}

// New returns a Bar of the given width in characters that writes to
// out and is full after total steps
func New(out io.Writer, width, total int) *Bar {
	if total < 1 {
		total = 1
	}
	return &Bar{out: out, width: width, total: total, started: time.Now()}
}

// Set records that done steps have completed. Values outside
// [0, total] are clipped.
func (b *Bar) Set(done int) {
	b.done = int(floatutils.Clip(float64(done), 0, float64(b.total)))
}

// Increment records one more completed step
func (b *Bar) Increment() {
	b.Set(b.done + 1)
}

// Fraction returns the completed fraction of the steps
func (b *Bar) Fraction() float64 {
	return float64(b.done) / float64(b.total)
}

func (b *Bar) String() string {
	filled := int(b.Fraction() * float64(b.width))
	return fmt.Sprintf("|%s%s| %d/%d [%.2f%% | elapsed: %v]",
		strings.Repeat("█", filled), strings.Repeat(" ", b.width-filled),
		b.done, b.total, b.Fraction()*100,
		time.Since(b.started).Truncate(time.Second))
}

// Display redraws the bar over the current line of the output
func (b *Bar) Display() {
	fmt.Fprintf(b.out, "\r\033[K%v", b)
}

// Finish moves the output past the line of the bar
func (b *Bar) Finish() {
	fmt.Fprintln(b.out)
}
