package olb

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Debug output locations.
const (
	DebugNone = iota
	DebugStdout
	DebugStderr
	DebugFile
)

// DebugOutput writes verbose messages up to a configured level. A nil
// DebugOutput writes nothing.
type DebugOutput struct {
	level  int
	logger *log.Logger
	file   io.Closer
}

// NewDebugOutput creates the debug output. The file is only used when the
// location is DebugFile.
func NewDebugOutput(
	location, level int,
	file string,
	prefix string,
) (*DebugOutput, error) {
	var w io.Writer

	d := &DebugOutput{level: level}

	switch location {
	case DebugNone:
		return nil, nil
	case DebugStdout:
		w = os.Stdout
	case DebugStderr:
		w = os.Stderr
	case DebugFile:
		if file == "" {
			return nil, &ConfigError{
				Param:  "debug_file",
				Reason: "debug output to file needs a file name",
			}
		}

		f, err := os.Create(file)
		if err != nil {
			return nil, &ConfigError{Param: "debug_file", Reason: err.Error()}
		}

		w = f
		d.file = f
	default:
		return nil, &ConfigError{
			Param:  "debug",
			Reason: fmt.Sprintf("unknown debug location %d", location),
		}
	}

	d.logger = log.New(w, prefix, 0)

	return d, nil
}

// NewDebugOutputTo creates a debug output that writes into w.
func NewDebugOutputTo(w io.Writer, level int, prefix string) *DebugOutput {
	return &DebugOutput{level: level, logger: log.New(w, prefix, 0)}
}

// Verbose prints the message if the level is enabled.
func (d *DebugOutput) Verbose(level int, format string, args ...any) {
	if d == nil || level > d.level {
		return
	}

	d.logger.Printf(format, args...)
}

// Close closes the debug file, if any.
func (d *DebugOutput) Close() error {
	if d == nil || d.file == nil {
		return nil
	}

	return d.file.Close()
}
