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

package darkphoenix_test

import (
	"errors"
	"testing"

	darkphoenix "github.com/SideChannelMarvels/DarkPhoenix"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/simulator"
)

func newValidator(t *testing.T, round int) *darkphoenix.Validator {
	wb, err := simulator.New(simulator.Config{Key: testKey, Seed: []byte("validator")})
	if err != nil {
		t.Fatal(err)
	}
	p, err := darkphoenix.NewProxy(wb)
	if err != nil {
		t.Fatal(err)
	}
	input, _ := p.RandomInput(0)
	v, err := darkphoenix.NewValidator(wb, round, p.Chain(nil, false).Apply, nil, input)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestValidatorAcceptsRound(t *testing.T) {
	v := newValidator(t, 8)
	for b := 0; b < 16; b++ {
		ok, err := v.TestAndCommit(b)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("Position %d of round 8 rejected", b)
		}
	}
	if !v.AllPositionsFound() {
		t.Errorf("AllPositionsFound false after 16 accepted positions")
	}
	if _, err := v.TestAndCommit(3); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("Committing position 3 twice returned %v", err)
	}
}

func TestValidatorRejectsOtherRounds(t *testing.T) {
	for _, round := range []int{9, 7} {
		v := newValidator(t, round)
		ok, err := v.TestAndCommit(0)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Errorf("Position 0 of round %d accepted for round 8 reversal", round)
		}
		if v.AllPositionsFound() {
			t.Errorf("AllPositionsFound true without any position")
		}
	}
}

func TestValidatorColumnNeedsFourPositions(t *testing.T) {
	v := newValidator(t, 8)
	group := map[int][]int{}
	for b := 0; b < 16; b++ {
		if ok, err := v.TestAndCommit(b); err != nil || !ok {
			t.Fatalf("Position %d of round 8 rejected (%v)", b, err)
		}
	}
	for b := 0; b < 16; b++ {
		col, ok := v.Column(b)
		if !ok {
			t.Fatalf("Position %d has no column after 16 accepted positions", b)
		}
		group[col] = append(group[col], b)
	}
	for col, pos := range group {
		if len(pos) != 4 {
			t.Errorf("Column %d positions (%v) did not have 4 entries", col, pos)
		}
	}

	// Leave out the last position of the column holding position 0.
	col0, _ := v.Column(0)
	pending := group[col0]
	last := pending[3]
	v = newValidator(t, 8)
	for b := 0; b < 16; b++ {
		if b == last {
			continue
		}
		if ok, err := v.TestAndCommit(b); err != nil || !ok {
			t.Fatalf("Position %d of round 8 rejected (%v)", b, err)
		}
	}
	for _, b := range pending[:3] {
		if _, ok := v.Column(b); ok {
			t.Errorf("Position %d assigned a column with 3 committed positions", b)
		}
	}
	if _, ok := v.Column(last); ok {
		t.Errorf("Uncommitted position %d assigned a column", last)
	}
	if v.AllPositionsFound() {
		t.Errorf("AllPositionsFound true with 15 positions")
	}

	if ok, err := v.TestAndCommit(last); err != nil || !ok {
		t.Fatalf("Position %d of round 8 rejected (%v)", last, err)
	}
	want, _ := v.Column(pending[0])
	for _, b := range pending {
		if col, ok := v.Column(b); !ok || col != want {
			t.Errorf("Column of position %d (%d, %v) did not match expected (%d, true)", b, col, ok, want)
		}
	}
	if !v.AllPositionsFound() {
		t.Errorf("AllPositionsFound false after 16 accepted positions")
	}
}
