package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestBar(t *testing.T) {
	var buf bytes.Buffer
	bar := New(&buf, 10, 4)

	bar.Increment()
	bar.Display()
	if !strings.Contains(buf.String(), "1/4 [25.00%") {
		t.Errorf("display: want 25%% progress, have %q", buf.String())
	}

	bar.Set(10)
	if s := bar.String(); !strings.Contains(s, "4/4 [100.00%") {
		t.Errorf("set: progress not clipped, have %q", s)
	}
	if n := strings.Count(bar.String(), "█"); n != 10 {
		t.Errorf("width: want(10) have(%v)", n)
	}

	bar.Set(-3)
	if bar.Fraction() != 0 {
		t.Errorf("fraction: want(0) have(%v)", bar.Fraction())
	}
}
