package errors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// BuildError represents a failure reported by one of the pipeline tasks,
// optionally pointing at a source location.
type BuildError struct {
	Task      string
	File      string
	Line      int
	Column    int
	Message   string
	Severity  ErrorSeverity
	Timestamp time.Time
}

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (be *BuildError) Error() string {
	var b strings.Builder
	if be.File != "" {
		b.WriteString(be.File)
		if be.Line > 0 {
			fmt.Fprintf(&b, ":%d", be.Line)
			if be.Column > 0 {
				fmt.Fprintf(&b, ":%d", be.Column)
			}
		}
		b.WriteString(": ")
	}
	b.WriteString(be.Message)
	return b.String()
}

// BuildErrors is a list of build errors that is itself an error.
type BuildErrors []*BuildError

func (e BuildErrors) Error() string {
	switch len(e) {
	case 0:
		return "no errors"
	case 1:
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors:\n%s", len(e), strings.Join(msgs, "\n"))
}

// ErrorCollector keeps the most recent errors reported by each task. A
// successful run clears that task's entry.
type ErrorCollector struct {
	byTask map[string][]BuildError
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		byTask: make(map[string][]BuildError),
	}
}

// Set replaces the errors recorded for a task.
func (ec *ErrorCollector) Set(task string, errs []BuildError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	if len(errs) == 0 {
		delete(ec.byTask, task)
		return
	}
	now := time.Now()
	stored := make([]BuildError, len(errs))
	for i, err := range errs {
		if err.Timestamp.IsZero() {
			err.Timestamp = now
		}
		if err.Task == "" {
			err.Task = task
		}
		stored[i] = err
	}
	ec.byTask[task] = stored
}

// Clear forgets the errors of a task.
func (ec *ErrorCollector) Clear(task string) {
	ec.Set(task, nil)
}

// GetErrors returns every recorded error, ordered by task name.
func (ec *ErrorCollector) GetErrors() []BuildError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	tasks := make([]string, 0, len(ec.byTask))
	for task := range ec.byTask {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)

	var result []BuildError
	for _, task := range tasks {
		result = append(result, ec.byTask[task]...)
	}
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.byTask) > 0
}

// FormatErrors renders errors as plain text, one per line, prefixed with the
// task that produced them.
func FormatErrors(errs []BuildError) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		if err.Task != "" {
			fmt.Fprintf(&b, "[%s] ", err.Task)
		}
		b.WriteString(err.Error())
	}
	return b.String()
}
