package results

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error holds a message, a reason and a child error. The common use-case
// is to classify errors from callsites:
//
//	if err := renderer.Clear(); err != nil {
//	    return results.ForReason(results.ReasonIOFailure).WithError(err).Errorf("could not clear %s", dir)
//	}
type Error struct {
	reason  Reason
	message string
	wrapped error
}

// Error makes an Error an error
func (e *Error) Error() string {
	return e.message
}

// Unwrap allows nesting of errors
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is allows us to say we are an Error
func (e *Error) Is(target error) bool {
	_, is := target.(*Error)
	return is
}

// Reason is the reason this error was classified with.
func (e *Error) Reason() Reason {
	return e.reason
}

// Reasons provides the chains of error reasons.
// Each item in the return value is a single chain divided by colons.  Aggregate
// errors (those whose type provides an `Errors` method returning a list of
// errors) are recursively expanded, generating a separate chain for each
// child.
func Reasons(errs ...error) (ret []string) {
	for _, err := range errs {
		switch err := err.(type) {
		case *Error:
			children := Reasons(err.Unwrap())
			if len(children) == 0 {
				ret = append(ret, string(err.reason))
				break
			}
			for _, r := range children {
				ret = append(ret, fmt.Sprintf("%s:%s", err.reason, r))
			}
		case interface{ Errors() []error }:
			ret = append(ret, Reasons(err.Errors()...)...)
		case interface{ Unwrap() error }:
			ret = append(ret, Reasons(err.Unwrap())...)
		}
	}
	return
}

// FullReason joins the distinct reason chains of err. Errors that were
// never classified report ReasonUnknown.
func FullReason(err error) string {
	if err == nil {
		return ""
	}
	chains := Reasons(err)
	if len(chains) == 0 {
		return string(ReasonUnknown)
	}
	seen := map[string]bool{}
	var unique []string
	for _, chain := range chains {
		if !seen[chain] {
			seen[chain] = true
			unique = append(unique, chain)
		}
	}
	sort.Strings(unique)
	return strings.Join(unique, ",")
}

// HasReason determines whether any Error in the chain of err carries reason.
func HasReason(err error, reason Reason) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.reason == reason {
			return true
		}
		err = e.wrapped
	}
	return false
}

// BuilderWithReason starts the builder chain
type BuilderWithReason struct {
	Error
}

// ForReason is a constructor for an Error from a Reason. We expect
// users to then add a child and a error message to this Error.
func ForReason(reason Reason) *BuilderWithReason {
	if reason == "" {
		reason = ReasonUnknown
	}
	return &BuilderWithReason{
		Error: Error{
			reason: reason,
		},
	}
}

// Errorf finishes an Error that has no child.
func (e *BuilderWithReason) Errorf(format string, args ...interface{}) error {
	e.message = fmt.Sprintf(format, args...)
	return &e.Error
}

// BuilderWithReasonAndError adds a child error to the builder
type BuilderWithReasonAndError struct {
	Error
}

// WithError is a builder that adds a child to the Error. We
// expect users to continue to build the Error by adding a message.
func (e *BuilderWithReason) WithError(err error) *BuilderWithReasonAndError {
	b := &BuilderWithReasonAndError{
		Error: e.Error,
	}
	b.wrapped = err
	return b
}

// Errorf is a builder that adds in the main error to an Error.
// This is expected to be the final builder/producer in a chain,
// so we return an error and not an Error. The message of the
// child is appended to the formatted message.
func (e *BuilderWithReasonAndError) Errorf(format string, args ...interface{}) error {
	e.message = fmt.Sprintf(format, args...)
	if e.wrapped != nil {
		e.message = fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return &e.Error
}

// ForError is a constructor for when a caller does not want to add
// a message but instead wants to classify an existing error:
//
//	err := results.ForReason(results.ReasonIOFailure).ForError(f.Close())
func (e *BuilderWithReason) ForError(err error) error {
	if err == nil {
		return nil
	}
	e.wrapped = err
	e.message = err.Error()
	return &e.Error
}
