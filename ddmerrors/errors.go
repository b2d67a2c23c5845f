// Package ddmerrors implements the DDM core's error-kind taxonomy
// (spec §7): every boundary-facing failure is one of a small fixed set
// of kinds, carried alongside a stack trace so logs can point back at
// the raising site.
package ddmerrors

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Kind is one of the fixed error categories surfaced to user space.
type Kind int

const (
	// Unknown is the zero value; Errorf/Wrap default to it when no
	// Kind is supplied.
	Unknown Kind = iota
	// NotFound: no such id or path.
	NotFound
	// BadValue: ill-formed arguments or a stale change counter.
	BadValue
	// NotAllowed: target is read-only media or the operation is
	// refused for a reason other than Busy.
	NotAllowed
	// Busy: target is busy, descendant-busy, or already has a shadow.
	Busy
	// BufferOverflow: caller's buffer is too small.
	BufferOverflow
	// NoMemory: allocation failure.
	NoMemory
	// NameTooLong: a name/label/type string exceeds its limit.
	NameTooLong
	// InitFailed: a disk system's init() failed.
	InitFailed
	// ModuleLoadFailed: a disk system module could not be loaded.
	ModuleLoadFailed
	// ValidationFailed: a disk system refused the requested parameters.
	ValidationFailed
	// JobFailed: the worker reported an error executing a job.
	JobFailed
	// Canceled: terminal state from user-initiated cancellation.
	Canceled
	// Reversed: terminal state after a successful cancel-with-reverse.
	Reversed
)

var kindNames = map[Kind]string{
	Unknown:          "Unknown",
	NotFound:         "NotFound",
	BadValue:         "BadValue",
	NotAllowed:       "NotAllowed",
	Busy:             "Busy",
	BufferOverflow:   "BufferOverflow",
	NoMemory:         "NoMemory",
	NameTooLong:      "NameTooLong",
	InitFailed:       "InitFailed",
	ModuleLoadFailed: "ModuleLoadFailed",
	ValidationFailed: "ValidationFailed",
	JobFailed:        "JobFailed",
	Canceled:         "Canceled",
	Reversed:         "Reversed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// TraceableError carries the error kind, the formatted message, and a
// capture of the call stack that raised it.
type TraceableError struct {
	Kind  Kind
	Trace string
	When  time.Time
	What  string
}

func getTraceIdx(idx int) (string, string, int) {
	pc := make([]uintptr, 10)
	runtime.Callers(2, pc)
	f := runtime.FuncForPC(pc[idx+1])
	file, line := f.FileLine(pc[idx+1])
	return f.Name(), file, line
}

func formatTraceIdx(idx int) (string, string) {
	funcName, file, line := getTraceIdx(idx)
	fileName := filepath.Base(file)

	fn := strings.Split(funcName, "github.com/diskdevmgr/ddm/")
	if len(fn) > 1 {
		funcName = fn[1]
	} else {
		funcName = fn[0]
	}

	dir := strings.Split(filepath.Dir(file), "/ddm/")
	var dirName string
	if len(dir) > 1 {
		dirName = dir[1]
	} else {
		dirName = dir[0]
	}

	return funcName, fmt.Sprintf("%s/%s:%d", dirName, fileName, line)
}

func getTrace() string {
	cfName, cTrace := formatTraceIdx(3)
	caller := fmt.Sprintf("%s()\n     %s\n", cfName, cTrace)

	rfName, rTrace := formatTraceIdx(2)
	raiser := fmt.Sprintf("%s()\n     %s\n", rfName, rTrace)

	return fmt.Sprintf("\n\nError Trace:\n%s%s", raiser, caller)
}

func (e TraceableError) Error() string {
	return fmt.Sprintf("%s: %s%s", e.Kind, e.What, e.Trace)
}

// Errorf returns a new Unknown-kind error with stack trace information.
func Errorf(format string, a ...interface{}) error {
	return New(Unknown, format, a...)
}

// New returns a new error of the given Kind with stack trace information.
func New(kind Kind, format string, a ...interface{}) error {
	return TraceableError{
		Kind:  kind,
		Trace: getTrace(),
		When:  time.Now(),
		What:  fmt.Sprintf(format, a...),
	}
}

// Wrap returns err unchanged when it is already a TraceableError
// (keeping its Kind and trace); any other error becomes an Unknown-kind
// error carrying err's message and the caller's stack trace.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if te, ok := err.(TraceableError); ok {
		return te
	}
	return Errorf(err.Error())
}

// WrapKind returns an error of the given kind with the caller stack
// information embedded in the original error's message.
func WrapKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return New(kind, err.Error())
}

// Is reports whether err is a TraceableError of the given Kind.
func Is(err error, kind Kind) bool {
	te, ok := err.(TraceableError)
	return ok && te.Kind == kind
}

// KindOf returns the Kind of err, or Unknown if err is not a
// TraceableError.
func KindOf(err error) Kind {
	if te, ok := err.(TraceableError); ok {
		return te.Kind
	}
	return Unknown
}

// ValidationError reports that a disk system refused requested
// parameters; callers must not treat it as an internal malfunction.
type ValidationError struct {
	When time.Time
	What string
}

func (ve ValidationError) Error() string {
	return ve.What
}

// ValidationErrorf formats a new ValidationError.
func ValidationErrorf(format string, a ...interface{}) error {
	return ValidationError{When: time.Now(), What: fmt.Sprintf(format, a...)}
}

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	_, ok := err.(ValidationError)
	return ok
}
