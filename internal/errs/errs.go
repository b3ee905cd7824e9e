// Package errs defines the typed error surface shared by the publish
// pipeline. Every error carries a human-readable message plus a
// machine-readable detail map so hosts can surface context without
// parsing strings.
package errs

import (
	"fmt"
	"sort"
	"strings"
)

// Details is the machine-readable context attached to pipeline errors.
type Details map[string]any

type baseError struct {
	msg     string
	details Details
	err     error
}

func (e *baseError) Error() string {
	if len(e.details) == 0 {
		return e.msg
	}
	keys := make([]string, 0, len(e.details))
	for k := range e.details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(e.msg)
	sb.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, e.details[k])
	}
	sb.WriteString(")")
	return sb.String()
}

func (e *baseError) Unwrap() error { return e.err }

// Details returns the detail map. Never nil.
func (e *baseError) Details() Details {
	if e.details == nil {
		return Details{}
	}
	return e.details
}

// InvalidInputError reports a malformed texture or mesh mapping from the host.
type InvalidInputError struct{ baseError }

// NewInvalidInput builds an InvalidInputError.
func NewInvalidInput(msg string, details Details) *InvalidInputError {
	return &InvalidInputError{baseError{msg: msg, details: details}}
}

// ValidationError reports a bad path, unsupported resolution or format, or a
// path escaping the publish base directory.
type ValidationError struct{ baseError }

// NewValidation builds a ValidationError.
func NewValidation(msg string, details Details) *ValidationError {
	return &ValidationError{baseError{msg: msg, details: details}}
}

// SceneGraphError reports a failed layer open/save or a malformed scene graph.
type SceneGraphError struct{ baseError }

// NewSceneGraph builds a SceneGraphError.
func NewSceneGraph(msg string, details Details) *SceneGraphError {
	return &SceneGraphError{baseError{msg: msg, details: details}}
}

// WrapSceneGraph builds a SceneGraphError wrapping an underlying error.
func WrapSceneGraph(msg string, details Details, err error) *SceneGraphError {
	return &SceneGraphError{baseError{msg: msg, details: details, err: err}}
}

// AmbiguousRootError reports a mesh scene graph whose authored root cannot be
// inferred (zero or more than one top-level prim).
type AmbiguousRootError struct{ baseError }

// NewAmbiguousRoot builds an AmbiguousRootError.
func NewAmbiguousRoot(msg string, details Details) *AmbiguousRootError {
	return &AmbiguousRootError{baseError{msg: msg, details: details}}
}

// MaterialAssignmentError reports a binding attempted on a non-material prim.
type MaterialAssignmentError struct{ baseError }

// NewMaterialAssignment builds a MaterialAssignmentError.
func NewMaterialAssignment(msg string, details Details) *MaterialAssignmentError {
	return &MaterialAssignmentError{baseError{msg: msg, details: details}}
}

// FileSystemError wraps a directory/file creation or read/write failure with
// the path and operation that failed.
type FileSystemError struct{ baseError }

// NewFileSystem builds a FileSystemError wrapping the underlying OS error.
func NewFileSystem(msg string, details Details, err error) *FileSystemError {
	return &FileSystemError{baseError{msg: msg, details: details, err: err}}
}

// ConfigurationError reports invalid naming or override configuration.
type ConfigurationError struct{ baseError }

// NewConfiguration builds a ConfigurationError.
func NewConfiguration(msg string, details Details) *ConfigurationError {
	return &ConfigurationError{baseError{msg: msg, details: details}}
}
