// Package tracker implements Trackers, which record the outcome of
// batches of episodes during training and save them
package tracker

import (
	"fmt"

	"github.com/samuelfneumann/crowdnav/experiment/checkpointer"
)

// Tracker keeps track of experiment data and saves the data when the
// experiment has finished
type Tracker interface {
	Track(r Record)
	Save() error
}

// Multi combines Trackers into a single Tracker
type Multi []Tracker

// Track calls Track on each Tracker
func (m Multi) Track(r Record) {
	for _, t := range m {
		t.Track(r)
	}
}

// Save calls Save on each Tracker, returning the first error
func (m Multi) Save() error {
	for _, t := range m {
		if err := t.Save(); err != nil {
			return err
		}
	}
	return nil
}

// History caches every Record in RAM and saves them with gob
type History struct {
	filename string
	records  []Record
}

// NewHistory returns a new History that saves to filename. Records
// already saved in filename are loaded first so that a resumed run
// extends its history.
func NewHistory(filename string) (*History, error) {
	h := &History{filename: filename}
	if checkpointer.Exists(filename) {
		records, err := LoadHistory(filename)
		if err != nil {
			return nil, fmt.Errorf("newHistory: %v", err)
		}
		h.records = records
	}
	return h, nil
}

// Track caches a Record
func (h *History) Track(r Record) {
	h.records = append(h.records, r)
}

// Records returns the cached Records
func (h *History) Records() []Record {
	return h.records
}

// Save atomically replaces the history file with all cached Records
func (h *History) Save() error {
	return checkpointer.SaveData(h.filename, h.records)
}

// LoadHistory loads and returns the Records saved by a History
func LoadHistory(filename string) ([]Record, error) {
	var records []Record
	if err := checkpointer.LoadData(filename, &records); err != nil {
		return nil, fmt.Errorf("loadHistory: %w", err)
	}
	return records, nil
}
