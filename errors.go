// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package pdfexport

import (
	"errors"
	"fmt"
)

// Kind identifies a class of export failure. Kinds are stable and safe to
// expose to callers.
type Kind string

const (
	// KindAmbiguousSource means zero or several document sources were supplied.
	KindAmbiguousSource Kind = "AmbiguousSource"
	// KindInvalidOptions means an option is malformed or out of range.
	KindInvalidOptions Kind = "InvalidOptions"
	// KindConflictingDeliveryMode means write_images and embed_images were both set.
	KindConflictingDeliveryMode Kind = "ConflictingDeliveryMode"
	// KindCapabilityUnavailable means layout mode was requested but is not available.
	KindCapabilityUnavailable Kind = "CapabilityUnavailable"
	// KindSourceUnreachable means the document could not be fetched or read.
	KindSourceUnreachable Kind = "SourceUnreachable"
	// KindInvalidDocument means the bytes are not a usable PDF document.
	KindInvalidDocument Kind = "InvalidDocument"
	// KindConversionFailure means the document parsed but rendering failed.
	KindConversionFailure Kind = "ConversionFailure"
	// KindPackagingFailure means the response envelope could not be assembled.
	KindPackagingFailure Kind = "PackagingFailure"
)

// Error is returned by every stage of the export pipeline.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the human-readable cause without the kind prefix.
func (e *Error) Message() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsValidation reports whether err was raised before any document work started.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindAmbiguousSource, KindInvalidOptions, KindConflictingDeliveryMode:
		return true
	}
	return false
}
