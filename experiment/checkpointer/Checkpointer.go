// Package checkpointer saves and loads the weights and training state
// of a run. Files are replaced whole so that a reader never observes a
// partially written checkpoint.
package checkpointer

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// CheckpointError records a failed checkpoint operation and the file
// it concerned
type CheckpointError struct {
	Op   string
	Path string
	Err  error
}

func (c *CheckpointError) Error() string {
	return c.Op + " " + c.Path + ": " + c.Err.Error()
}

func (c *CheckpointError) Unwrap() error {
	return c.Err
}

// IsNotExist returns whether err reports a checkpoint file that does
// not exist
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// Exists returns whether a checkpoint file exists at path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Save gob encodes object and atomically replaces the file at path
func Save(path string, object Serializable) error {
	return encode("save", path, object)
}

// Load decodes the gob encoded object at path into object
func Load(path string, object Serializable) error {
	return decode("load", path, object)
}

// SaveData gob encodes a plain value, such as a slice of log records,
// and atomically replaces the file at path
func SaveData(path string, v interface{}) error {
	return encode("saveData", path, v)
}

// LoadData decodes the gob encoded value at path into v
func LoadData(path string, v interface{}) error {
	return decode("loadData", path, v)
}

func encode(op, path string, v interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return &CheckpointError{Op: op, Path: path,
			Err: fmt.Errorf("could not encode: %w", err)}
	}
	return write(op, path, buf.Bytes())
}

func decode(op, path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return &CheckpointError{Op: op, Path: path, Err: err}
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return &CheckpointError{Op: op, Path: path,
			Err: fmt.Errorf("could not decode: %w", err)}
	}
	return nil
}

// SaveJSON encodes v as indented JSON and atomically replaces the file
// at path
func SaveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return &CheckpointError{Op: "saveJSON", Path: path, Err: err}
	}
	return write("saveJSON", path, append(data, '\n'))
}

// LoadJSON decodes the JSON file at path into v
func LoadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CheckpointError{Op: "loadJSON", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &CheckpointError{Op: "loadJSON", Path: path, Err: err}
	}
	return nil
}

func write(op, path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return &CheckpointError{Op: op, Path: path, Err: err}
	}
	return nil
}
