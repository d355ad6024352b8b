// FILE: lixenwraith/secureconfig/errors.go
package secureconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every error returned by the package matches one of these
// through errors.Is, so callers can branch on failure kind.
var (
	ErrMissingCurrentEnvironment = errors.New("current environment is not set")
	ErrEnvironmentNotFound       = errors.New("environment not found")
	ErrKeyNotFound               = errors.New("key not found")
	ErrConnectionStringNotFound  = errors.New("connection string not found")
	ErrInvalidArgument           = errors.New("invalid argument")
	ErrProtection                = errors.New("section protection failed")
	ErrPersistence               = errors.New("configuration persistence failed")

	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrUnknownProvider   = errors.New("unknown protection provider")
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
)

// LookupError reports a value that could not be located. Kind is one of the
// not-found sentinels above.
type LookupError struct {
	Kind    error
	Section string
	Key     string
}

func (e *LookupError) Error() string {
	switch {
	case e.Key != "" && e.Section != "":
		return fmt.Sprintf("%v: %q in section %q", e.Kind, e.Key, e.Section)
	case e.Section != "":
		return fmt.Sprintf("%v: %q", e.Kind, e.Section)
	case e.Key != "":
		return fmt.Sprintf("%v: %q", e.Kind, e.Key)
	}
	return e.Kind.Error()
}

func (e *LookupError) Unwrap() error {
	return e.Kind
}

// AmbiguousEnvironmentError reports an environment name that has no exact
// match and matches several environments case-insensitively.
type AmbiguousEnvironmentError struct {
	Name    string
	Matches []string
}

func (e *AmbiguousEnvironmentError) Error() string {
	return fmt.Sprintf("%v: %q is ambiguous, matches %s", ErrEnvironmentNotFound, e.Name, strings.Join(e.Matches, ", "))
}

func (e *AmbiguousEnvironmentError) Unwrap() error {
	return ErrEnvironmentNotFound
}

// invalidArgument builds an ErrInvalidArgument naming the offending parameter.
func invalidArgument(name string) error {
	return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, name)
}

// ProtectionError reports a provider failure while protecting or
// unprotecting one section.
type ProtectionError struct {
	Section string
	Op      string // "protect" or "unprotect"
	Err     error
}

func (e *ProtectionError) Error() string {
	return fmt.Sprintf("failed to %s section %q: %v", e.Op, e.Section, e.Err)
}

func (e *ProtectionError) Unwrap() error {
	return e.Err
}

func (e *ProtectionError) Is(target error) bool {
	return target == ErrProtection
}

// PersistenceError reports a failure reading or saving the backing store.
type PersistenceError struct {
	Path string
	Op   string // "open" or "save"
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to %s configuration: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s configuration '%s': %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// SweepError collects every section that failed during an encrypt or
// decrypt sweep. Sections not listed completed their transition.
type SweepError struct {
	Op       string
	Failures []*ProtectionError
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("%s sweep failed for %d section(s): %s",
		e.Op, len(e.Failures), strings.Join(e.FailedSections(), ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *SweepError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// FailedSections returns the paths of the sections that did not transition.
func (e *SweepError) FailedSections() []string {
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Section
	}
	return paths
}
