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

package failure_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("Stage failed: %w", failure.Unexpected("Lost a solution"))
	if !errors.Is(err, failure.ErrUnexpected) {
		t.Errorf("errors.Is(%v, ErrUnexpected) = false", err)
	}
	if errors.Is(err, failure.ErrInvalidState) {
		t.Errorf("errors.Is(%v, ErrInvalidState) = true", err)
	}
	if !failure.IsDomain(err) {
		t.Errorf("IsDomain(%v) = false", err)
	}
	if failure.IsDomain(errors.New("io")) {
		t.Errorf("IsDomain(io) = true")
	}
}

func TestFaultPosition(t *testing.T) {
	for _, tc := range []struct {
		err  error
		msg  string
		want []int
	}{
		{failure.FaultPosition(8), "Wrong position for fault at round 8", nil},
		{failure.FaultPosition(7, 3), "Wrong position for fault at round 7 byte 3", []int{3}},
		{failure.FaultPosition(6, 1, 9), "Wrong position for fault at round 6 byte [1 9]", []int{1, 9}},
	} {
		if tc.err.Error() != tc.msg {
			t.Errorf("Error() = %q, want %q", tc.err.Error(), tc.msg)
		}
		e, ok := failure.AsFaultPosition(fmt.Errorf("wrapped: %w", tc.err))
		if !ok {
			t.Fatalf("AsFaultPosition(%v) failed", tc.err)
		}
		if !reflect.DeepEqual(e.Bytes, tc.want) {
			t.Errorf("Bytes = %v, want %v", e.Bytes, tc.want)
		}
	}
	if _, ok := failure.AsFaultPosition(failure.WhiteBox("bad")); ok {
		t.Errorf("AsFaultPosition accepted a WhiteBoxError")
	}
}
