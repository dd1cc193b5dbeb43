package tracker

import (
	"io"
	"log"
	"os"
)

// Logger writes timestamped log lines to stdout and a log file. Debug
// lines are written only when debugging is enabled. A Logger is a
// Tracker that logs each Record it is given.
type Logger struct {
	info  *log.Logger
	debug *log.Logger
	err   *log.Logger
	file  *os.File
}

// NewLogger returns a new Logger appending to the file at path. If
// path is empty, only w is written to.
func NewLogger(w io.Writer, path string, debug bool) (*Logger, error) {
	var file *os.File
	if path != "" {
		var err error
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY,
			0644)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(w, file)
	}

	flags := log.Ldate | log.Ltime
	debugW := io.Discard
	if debug {
		debugW = w
	}

	return &Logger{
		info:  log.New(w, "INFO: ", flags|log.Lmsgprefix),
		debug: log.New(debugW, "DEBUG: ", flags|log.Lmsgprefix),
		err:   log.New(w, "ERROR: ", flags|log.Lmsgprefix),
		file:  file,
	}, nil
}

// Infof logs an informational line
func (l *Logger) Infof(format string, v ...interface{}) {
	l.info.Printf(format, v...)
}

// Debugf logs a line only when debugging
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.debug.Printf(format, v...)
}

// Errorf logs an error line
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.err.Printf(format, v...)
}

// Info returns the underlying informational logger
func (l *Logger) Info() *log.Logger {
	return l.info
}

// Track logs a Record
func (l *Logger) Track(r Record) {
	l.info.Print(r.String())
}

// Save flushes the log file
func (l *Logger) Save() error {
	if l.file == nil {
		return nil
	}
	return l.file.Sync()
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
