// Package errors decorates errors with slog attributes and the source location where they were annotated.
//
// It re-exports the standard library helpers so that callers only need one errors import.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
)

// annotatedError carries a message, optional slog attributes and the program counter of the annotation site.
type annotatedError struct {
	err   error
	msg   string
	attrs []slog.Attr
	pc    uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// callerPC returns the program counter skip frames above the caller of callerPC.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	// runtime.Callers, callerPC and the exported constructor.
	if runtime.Callers(skip+3, pcs[:]) == 0 { //nolint:mnd // frames listed above.
		return 0
	}
	return pcs[0]
}

// New returns an error annotated with the caller's source location.
func New(text string, attrs ...slog.Attr) error {
	return &annotatedError{err: nil, msg: text, attrs: attrs, pc: callerPC(0)}
}

// NewSentinel returns a plain error meant to be compared with [Is]. It does not record a source location
// because sentinels are declared at package level.
func NewSentinel(text string) error {
	return stderrors.New(text) //nolint:err113 // sentinel constructor.
}

// Wrap annotates err with msg and attrs. The resulting error message is "msg: err".
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{err: err, msg: msg, attrs: attrs, pc: callerPC(0)}
}

// DecoratePanic converts a recovered panic value into an error pointing at the panicking frame.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:]) //nolint:mnd // skip runtime.Callers and DecoratePanic.
	frames := runtime.CallersFrames(pcs[:n])
	var (
		pc       uintptr
		fallback uintptr
		sawPanic bool
	)
	for {
		frame, more := frames.Next()
		if fallback == 0 {
			fallback = frame.PC
		}
		switch {
		case frame.Function == "runtime.gopanic":
			sawPanic = true
		case sawPanic && !isRuntimeFrame(frame.Function):
			// The first frame after runtime.gopanic outside the runtime is the one that panicked.
			pc = frame.PC
		}
		if !more || pc != 0 {
			break
		}
	}
	if pc == 0 {
		pc = fallback
	}
	if err, ok := excp.(error); ok {
		return &annotatedError{err: err, msg: "panic", attrs: nil, pc: pc}
	}
	return &annotatedError{err: nil, msg: fmt.Sprintf("panic: %v", excp), attrs: nil, pc: pc}
}

func isRuntimeFrame(function string) bool {
	const prefix = "runtime."
	return len(function) >= len(prefix) && function[:len(prefix)] == prefix
}

// SlogError turns err into a structured "error" group containing the message, the annotations collected from
// the whole wrap chain and the innermost annotated source location.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("<nil>")}
	}

	var (
		annotations []any
		source      string
	)
	for current := err; current != nil; current = stderrors.Unwrap(current) {
		var annotated *annotatedError
		if !stderrors.As(current, &annotated) {
			break
		}
		for _, a := range annotated.attrs {
			annotations = append(annotations, a)
		}
		if annotated.pc != 0 {
			frame, _ := runtime.CallersFrames([]uintptr{annotated.pc}).Next()
			if frame.File != "" {
				source = frame.File + ":" + strconv.Itoa(frame.Line)
			}
		}
		current = annotated
	}

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
