// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Attack error kinds.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindInvalidState
	KindUnexpected
	KindWhiteBox
	KindFaultPosition
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindInvalidState:
		return "InvalidState"
	case KindUnexpected:
		return "UnexpectedFailure"
	case KindWhiteBox:
		return "WhiteBoxError"
	case KindFaultPosition:
		return "FaultPositionError"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by every attack component for domain failures.
// Round and Bytes are only meaningful for KindFaultPosition; Bytes is empty
// when the faulty coordinate is unknown.
type Error struct {
	Kind  Kind
	Msg   string
	Round int
	Bytes []int
}

func (e *Error) Error() string {
	if e.Kind == KindFaultPosition {
		switch len(e.Bytes) {
		case 0:
			return fmt.Sprintf("Wrong position for fault at round %d", e.Round)
		case 1:
			return fmt.Sprintf("Wrong position for fault at round %d byte %d", e.Round, e.Bytes[0])
		default:
			return fmt.Sprintf("Wrong position for fault at round %d byte %v", e.Round, e.Bytes)
		}
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

// Is matches any error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrUnexpected      = &Error{Kind: KindUnexpected}
	ErrWhiteBox        = &Error{Kind: KindWhiteBox}
	ErrFaultPosition   = &Error{Kind: KindFaultPosition}
)

func newf(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...interface{}) error {
	return newf(KindInvalidArgument, format, args...)
}

func InvalidState(format string, args ...interface{}) error {
	return newf(KindInvalidState, format, args...)
}

func Unexpected(format string, args ...interface{}) error {
	return newf(KindUnexpected, format, args...)
}

func WhiteBox(format string, args ...interface{}) error {
	return newf(KindWhiteBox, format, args...)
}

// FaultPosition reports a fault coordinate of the given round that does not
// reach the expected internal byte.
func FaultPosition(round int, bytes ...int) error {
	e := &Error{Kind: KindFaultPosition, Round: round}
	if len(bytes) > 0 {
		e.Bytes = append([]int(nil), bytes...)
	}
	return e
}

// IsDomain reports whether err carries one of the attack error kinds.
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// AsFaultPosition extracts a fault position error from err.
func AsFaultPosition(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindFaultPosition {
		return e, true
	}
	return nil, false
}
