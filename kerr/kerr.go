// Package kerr defines the five disjoint error kinds the serializer kernel
// can raise, per spec §7. Every failure surfaces as one of these kinds and
// carries context (an offset, an offending type, or a budget figure)
// through github.com/cockroachdb/errors wrapping rather than a bare string.
package kerr

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
)

// Leaf sentinels. errors.Is(err, ErrMalformed) (etc.) holds for any error
// built by the constructors below, however much context was wrapped on top.
var (
	// ErrMalformed covers any wire-format violation: truncated reads, a
	// bool byte outside {0,1}, a varint whose continuation bit overruns
	// its width, an out-of-range or empty-slot back-reference, trailing
	// bytes left after a full-buffer decode.
	ErrMalformed = errors.New("graphwire: malformed wire data")

	// ErrTypeNotFound covers a type or method identity that cannot be
	// resolved in any reachable assembly.
	ErrTypeNotFound = errors.New("graphwire: type not found")

	// ErrMissingFormatter covers a resolver chain producing no formatter
	// for a requested type.
	ErrMissingFormatter = errors.New("graphwire: no formatter available for type")

	// ErrQuotaExceeded covers a decode whose running allocation estimate
	// exceeds the configured ceiling.
	ErrQuotaExceeded = errors.New("graphwire: allocation budget exceeded")

	// ErrUnsupportedHost covers a runtime that cannot synthesize
	// by-member read/write routines (no dynamic code generation support).
	ErrUnsupportedHost = errors.New("graphwire: host does not support required dynamic code generation")
)

// Malformed builds an ErrMalformed-rooted error carrying a byte offset and
// a formatted detail message.
func Malformed(offset int64, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return errors.Wrapf(ErrMalformed, "%s at offset %d", detail, offset)
}

// TypeNotFound builds an ErrTypeNotFound-rooted error naming the identity
// that failed to resolve.
func TypeNotFound(what string) error {
	return errors.Wrapf(ErrTypeNotFound, "%s", what)
}

// MissingFormatter builds an ErrMissingFormatter-rooted error naming the
// type the resolver chain declined to handle.
func MissingFormatter(t reflect.Type) error {
	if t == nil {
		return errors.Wrapf(ErrMissingFormatter, "<nil type>")
	}
	return errors.Wrapf(ErrMissingFormatter, "%s", t.String())
}

// MissingFormatterNamed is MissingFormatter for callers (like the method
// codec) that have a description but no reflect.Type to name.
func MissingFormatterNamed(what string) error {
	return errors.Wrapf(ErrMissingFormatter, "%s", what)
}

// QuotaExceeded builds an ErrQuotaExceeded-rooted error reporting the
// consumed total against the configured ceiling.
func QuotaExceeded(consumed, ceiling int64) error {
	return errors.Wrapf(ErrQuotaExceeded, "consumed %d bytes, ceiling is %d", consumed, ceiling)
}

// UnsupportedHost builds an ErrUnsupportedHost-rooted error naming the
// capability that was required but unavailable.
func UnsupportedHost(reason string) error {
	return errors.Wrapf(ErrUnsupportedHost, "%s", reason)
}

// CyclicBeforeInit is a malformed-kind error specific to a back-reference
// landing on a slot that has been allocated but not yet written — the one
// cycle-related failure the reference engine can raise (spec §4.x).
func CyclicBeforeInit(index int) error {
	return Malformed(-1, "back-reference to slot %d before it was initialized (cyclic-before-init)", index)
}
