package stacktrace

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors/errbase"
)

// Frame is a resolved frame of a call stack.
type Frame struct {
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line)
}

// Frames resolves the frames of an error stack trace, innermost first.
// Runtime frames at the bottom of the stack are left out.
func Frames(trace errbase.StackTrace) []Frame {
	frames := make([]Frame, 0, len(trace))
	bottom := len(trace)
	for bottom > 0 {
		fn := runtime.FuncForPC(uintptr(trace[bottom-1]) - 1)
		if fn == nil || !strings.HasPrefix(fn.Name(), "runtime.") {
			break
		}
		bottom--
	}

	for _, frame := range trace[:bottom] {
		pc := uintptr(frame) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			frames = append(frames, Frame{Function: "unknown"})
			continue
		}
		file, line := fn.FileLine(pc)
		frames = append(frames, Frame{Function: fn.Name(), File: file, Line: line})
	}
	return frames
}

// Lines returns the frames of an error stack trace as strings.
func Lines(trace errbase.StackTrace) []string {
	frames := Frames(trace)
	lines := make([]string, len(frames))
	for i, frame := range frames {
		lines[i] = frame.String()
	}
	return lines
}
