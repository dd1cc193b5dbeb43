package tracker

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samuelfneumann/crowdnav/experiment/checkpointer"
)

func TestRecordString(t *testing.T) {
	r := Record{
		Phase:         "VAL",
		Episode:       1000,
		SuccessRate:   0.91,
		CollisionRate: 0.04,
		NavTime:       10.5,
		TotalReward:   0.3125,
		Epsilon:       0.1,
	}

	want := "VAL   in episode 1000 has success rate: 0.91, collision rate: " +
		"0.04, nav time: 10.50, total reward: 0.3125, epsilon: 0.1000"
	if r.String() != want {
		t.Errorf("string:\n\twant(%v)\n\thave(%v)", want, r.String())
	}

	parsed, err := ParseRecord("2021-01-01 00:00:00, INFO: " + r.String())
	if err != nil {
		t.Fatalf("parseRecord: %v", err)
	}
	if parsed != r {
		t.Errorf("parseRecord: want(%+v) have(%+v)", r, parsed)
	}

	if _, err := ParseRecord("Experience set size: 10/100"); err == nil {
		t.Error("parseRecord: expected error for non-record line")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "output.log")

	l, err := NewLogger(&buf, path, false)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	defer l.Close()

	l.Infof("Experience set size: %d/%d", 10, 100)
	l.Debugf("hidden")
	l.Errorf("stage %v failed", "Training")
	l.Track(Record{Phase: "TRAIN", Episode: 3})

	out := buf.String()
	if !strings.Contains(out, "ERROR: stage Training failed") {
		t.Errorf("errorf: line missing from %q", out)
	}
	if !strings.Contains(out, "Experience set size: 10/100") {
		t.Errorf("infof: line missing from %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debugf: logged while not debugging")
	}
	if _, err := ParseRecord(out); err != nil {
		t.Errorf("track: %v", err)
	}
}

func TestHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.gob")

	h, err := NewHistory(path)
	if err != nil {
		t.Fatalf("newHistory: %v", err)
	}
	h.Track(Record{Phase: "TRAIN", Episode: 1, SuccessRate: 1})
	h.Track(Record{Phase: "VAL", Episode: 1})
	if err := h.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	resumed, err := NewHistory(path)
	if err != nil {
		t.Fatalf("newHistory: %v", err)
	}
	if n := len(resumed.Records()); n != 2 {
		t.Errorf("records: want(2) have(%v)", n)
	}
	if resumed.Records()[0].SuccessRate != 1 {
		t.Errorf("records: have(%+v)", resumed.Records()[0])
	}

	// Saving again replaces the file whole
	resumed.Track(Record{Phase: "TEST", Episode: 2})
	if err := resumed.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "history.gob" {
		t.Errorf("save: want only history.gob, have %v", entries)
	}
	records, err := LoadHistory(path)
	if err != nil || len(records) != 3 {
		t.Errorf("loadHistory: want 3 records, have %v (%v)", records, err)
	}

	_, err = LoadHistory(filepath.Join(t.TempDir(), "missing.gob"))
	if !checkpointer.IsNotExist(err) {
		t.Errorf("loadHistory: want missing file error, have %v", err)
	}
}
