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

// White-box AES oracle contract.
package oracle

import (
	"fmt"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
)

// Fault xors Value into internal byte Byte at the start of round Round.
type Fault struct {
	Round int
	Byte  int
	Value byte
}

func (f Fault) String() string {
	return fmt.Sprintf("(%d, %d, %#02x)", f.Round, f.Byte, f.Value)
}

// WhiteBox is the attacked implementation. Blocks are 16 bytes.
//
// ApplyFault must behave as Apply with every fault xored into the state at
// the start of its round. Byte only has to select a distinct internal byte
// per value; the mapping to the AES state may be arbitrary.
//
//go:generate mockgen -destination=../mocks/whitebox.go -package=mocks github.com/SideChannelMarvels/DarkPhoenix/oracle WhiteBox,DynamicWhiteBox,AutoWhiteBox
type WhiteBox interface {
	// 10, 12 or 14.
	Rounds() int
	IsEncrypt() bool
	HasReverse() bool
	Apply(data []byte) ([]byte, error)
	// Only called when HasReverse is true.
	ApplyReverse(data []byte) ([]byte, error)
	ApplyFault(data []byte, faults []Fault) ([]byte, error)
}

// ReverseFunc maps an oracle output back to the internal state after a
// given round.
type ReverseFunc func(out []byte) ([]byte, error)

// DynamicWhiteBox chooses its own fault coordinates for a round before the
// first fault of that round is injected. reverse2 is nil when the state one
// round earlier cannot be computed yet.
type DynamicWhiteBox interface {
	WhiteBox
	PrepareFaultPosition(round int, reverse, reverse2 ReverseFunc) error
}

// AutoWhiteBox lets the attack discover fault coordinates. ChangeFaultPosition
// binds (round, b) to a new internal location that is safe to fault with any
// value; RemoveFaultPosition drops the binding.
type AutoWhiteBox interface {
	WhiteBox
	ChangeFaultPosition(round, b int) error
	RemoveFaultPosition(round, b int) error
}

// Forker is implemented by oracles that cannot be shared between goroutines.
// Fork returns an independent instance ready for use.
type Forker interface {
	Fork() (WhiteBox, error)
}

// RandomInputSource lets the oracle pick the reference inputs.
type RandomInputSource interface {
	RandomInput(n int) []byte
}

// LastRoundInfo declares the shape of the last round, skipping detection.
type LastRoundInfo interface {
	LastRoundHasMixColumns() bool
}

// RoundApplier exposes single rounds, round in [0, Rounds()).
type RoundApplier interface {
	Rounds() int
	ApplyRound(data []byte, round int) ([]byte, error)
}

// FaultByRounds implements ApplyFault on top of ApplyRound.
func FaultByRounds(wb RoundApplier, data []byte, faults []Fault) ([]byte, error) {
	state := append([]byte(nil), data...)
	for _, f := range faults {
		if f.Round < 0 || f.Round >= wb.Rounds() {
			return nil, failure.InvalidArgument("Invalid fault round %d", f.Round)
		}
		if f.Byte < 0 || f.Byte > 15 {
			return nil, failure.InvalidArgument("Invalid fault byte %d", f.Byte)
		}
		if f.Value == 0 {
			return nil, failure.InvalidArgument("Invalid fault value 0")
		}
	}
	var err error
	for r := 0; r < wb.Rounds(); r++ {
		for _, f := range faults {
			if f.Round == r {
				state[f.Byte] ^= f.Value
			}
		}
		if state, err = wb.ApplyRound(state, r); err != nil {
			return nil, err
		}
	}
	return state, nil
}
