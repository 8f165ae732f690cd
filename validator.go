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

package darkphoenix

import (
	"reflect"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

// Validator certifies fault coordinates of one round. A coordinate is
// accepted when every fault value reaches exactly one column of the state
// given by reverse, reaches every byte of the state given by reverse2 when
// set, and yields differences no other accepted coordinate of that column
// produced. Each column takes at most four coordinates, and is assigned to
// them once all four are committed.
type Validator struct {
	wb       oracle.WhiteBox
	round    int
	reverse  oracle.ReverseFunc
	reverse2 oracle.ReverseFunc

	input []byte
	ref   []byte
	ref2  []byte

	committed    [16]bool
	foundColumns int
	// Column claimed by the first coordinate reaching each state byte, -1
	// before. The claim is tentative until the column holds four
	// coordinates.
	columnByByte [16]int
	columnPos    [4][]int
	faults       [4]map[string]bool
}

// NewValidator computes the reference output of input. reverse2 may be nil.
func NewValidator(wb oracle.WhiteBox, round int, reverse, reverse2 oracle.ReverseFunc, input []byte) (*Validator, error) {
	v := &Validator{wb: wb, round: round, reverse: reverse, reverse2: reverse2, input: input}
	for i := range v.columnByByte {
		v.columnByByte[i] = -1
	}
	for i := range v.faults {
		v.faults[i] = make(map[string]bool)
	}

	var err error
	var out []byte
	if out, err = wb.Apply(input); err != nil {
		return nil, err
	}
	if v.ref, err = reverse(out); err != nil {
		return nil, err
	}
	if reverse2 != nil {
		if v.ref2, err = reverse2(out); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// result returns the changed positions and their values.
func (v *Validator) result(b int, value byte) (bool, []int, string, error) {
	var err error
	var raw, out []byte
	if raw, err = v.wb.ApplyFault(v.input, []oracle.Fault{{Round: v.round, Byte: b, Value: value}}); err != nil {
		return false, nil, "", err
	}
	if out, err = v.reverse(raw); err != nil {
		return false, nil, "", err
	}
	pos := diffPositions(v.ref, out)
	short := make([]byte, len(pos))
	for i, p := range pos {
		short[i] = out[p]
	}
	valid := len(pos) == 4
	if valid && v.reverse2 != nil {
		var out2 []byte
		if out2, err = v.reverse2(raw); err != nil {
			return false, nil, "", err
		}
		valid = len(diffPositions(v.ref2, out2)) == 16
	}
	return valid, pos, string(short), nil
}

// TestAndCommit reports whether coordinate b is accepted, and records it if
// so. A rejection is not an error.
func (v *Validator) TestAndCommit(b int) (bool, error) {
	if b < 0 || b > 15 || v.committed[b] {
		return false, failure.InvalidArgument("Position %d already committed", b)
	}

	valid, pos, short, err := v.result(b, 1)
	if err != nil || !valid {
		return false, err
	}
	col := v.columnByByte[pos[0]]
	for _, p := range pos {
		if v.columnByByte[p] != col {
			return false, nil
		}
	}
	if col >= 0 {
		if len(v.columnPos[col]) == 4 || v.faults[col][short] {
			return false, nil
		}
	} else if v.foundColumns == 4 {
		return false, nil
	}

	faults := map[string]bool{short: true}
	for value := 2; value < 256; value++ {
		var pos2 []int
		var short2 string
		if valid, pos2, short2, err = v.result(b, byte(value)); err != nil {
			return false, err
		}
		switch {
		case !valid, !reflect.DeepEqual(pos, pos2), faults[short2]:
			return false, nil
		case col >= 0 && v.faults[col][short2]:
			return false, nil
		}
		faults[short2] = true
	}

	v.committed[b] = true
	if col < 0 {
		col = v.foundColumns
		v.foundColumns++
		for _, p := range pos {
			v.columnByByte[p] = col
		}
	}
	v.columnPos[col] = append(v.columnPos[col], b)
	for f := range faults {
		v.faults[col][f] = true
	}
	glog.V(1).Infof("Round %d position %d accepted for column %d", v.round, b, col)
	return true, nil
}

// Column returns the column assigned to coordinate b. ok is false until b
// and three other coordinates of its column are committed.
func (v *Validator) Column(b int) (col int, ok bool) {
	for c, pos := range v.columnPos {
		for _, p := range pos {
			if p == b {
				return c, len(pos) == 4
			}
		}
	}
	return -1, false
}

func (v *Validator) AllPositionsFound() bool {
	for _, c := range v.committed {
		if !c {
			return false
		}
	}
	for _, pos := range v.columnPos {
		if len(pos) != 4 {
			return false
		}
	}
	return true
}
