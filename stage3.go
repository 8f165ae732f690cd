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
	"bytes"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/codec"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/gf256"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
	"github.com/SideChannelMarvels/DarkPhoenix/resolver"
)

// Column observations of one fault coordinate: entry 0 is the reference
// column, entry v the column after faulting with value v.
type faultSet [][]byte

// The two fault sets of a column used for each output row.
var rowFaultSets = [4][2]int{{0, 1}, {2, 3}, {1, 3}, {2, 0}}

// columnFaults faults coordinate fpos with every value and checks that
// exactly one column changes.
func columnFaults(p *Proxy, chain *Chain, input, ref []byte, round, fpos int) (int, faultSet, error) {
	set := make(faultSet, 256)
	col := -1
	for v := 1; v < 256; v++ {
		out, err := p.ApplyFault(input, chain, oracle.Fault{Round: round, Byte: fpos, Value: byte(v)})
		if err != nil {
			return 0, nil, err
		}
		pos := diffPositions(ref, out)
		if len(pos) != 4 || pos[0]%4 != 0 || pos[3] != pos[0]+3 || (col >= 0 && pos[0]/4 != col) {
			return 0, nil, failure.FaultPosition(round, fpos)
		}
		col = pos[0] / 4
		set[v] = out[4*col : 4*col+4]
	}
	set[0] = ref[4*col : 4*col+4]
	return col, set, nil
}

func collectColumnFaults(p *Proxy, gtildeInv codec.Vector, input []byte) ([4][]faultSet, [4][]int, error) {
	var sets [4][]faultSet
	var positions [4][]int
	round := stage2Round(p)
	output := []codec.Vector{gtildeInv}
	if err := p.PrepareFaultPosition(round, output, false); err != nil {
		return sets, positions, err
	}
	chain := p.Chain(output, false)
	ref, err := p.ApplyChain(input, chain)
	if err != nil {
		return sets, positions, err
	}
	for fpos := 0; fpos < 16; fpos++ {
		col, set, err := columnFaults(p, chain, input, ref, round, fpos)
		if err != nil {
			return sets, positions, err
		}
		if len(sets[col]) == 4 {
			return sets, positions, failure.FaultPosition(round, fpos)
		}
		sets[col] = append(sets[col], set)
		positions[col] = append(positions[col], fpos)
	}
	glog.V(1).Infof("Stage 3: fault coordinates per column %v", positions)
	return sets, positions, nil
}

// pairMap maps the difference on row p0 to the difference on row p1.
func pairMap(set faultSet, p0, p1 int) (*codec.Perm8, bool) {
	base := set[0]
	table := emptySlots()
	for _, f := range set {
		d := base[p0] ^ f[p0]
		if table[d] >= 0 {
			return nil, false
		}
		table[d] = int(base[p1] ^ f[p1])
	}
	perm, err := codec.New(table[:])
	return perm, err == nil
}

// assign records that fault set i hit AES row row.
func assign(rows *[4]int, i, row int) bool {
	if rows[i] >= 0 {
		return rows[i] == row
	}
	for _, r := range rows {
		if r == row {
			return false
		}
	}
	rows[i] = row
	return true
}

func linearLayer(res resolver.Resolver, encrypt bool, round int, sets [4][]faultSet, positions [4][]int) (codec.Vector, [4][4]int, error) {
	var rows [4][4]int
	for c := range rows {
		for i := range rows[c] {
			rows[c][i] = -1
		}
	}
	gbar := make(codec.Vector, 16)
	for b := range gbar {
		col, p0 := b/4, b%4
		p1 := p0 ^ 1
		i0, i1 := rowFaultSets[p0][0], rowFaultSets[p0][1]
		f0, f1 := sets[col][i0], sets[col][i1]
		bad := failure.FaultPosition(round, positions[col][i0], positions[col][i1])

		if !bytes.Equal(f0[0], f1[0]) {
			return nil, rows, bad
		}
		w01, ok0 := pairMap(f0, p0, p1)
		w10, ok1 := pairMap(f1, p1, p0)
		if !ok0 || !ok1 {
			return nil, rows, bad
		}
		l01 := w10.Combine(w01)
		matrix := make([]int, 8)
		for x := range matrix {
			matrix[x] = int(l01.Encode(byte(1 << uint(x))))
		}

		resp, err := res.Resolve(&resolver.Request{Matrix: matrix, Rows: [2]int{p0, p1}, Encrypt: encrypt})
		if err != nil {
			return nil, rows, err
		}
		if !resp.Found || !assign(&rows[col], i0, resp.Rows[0]) || !assign(&rows[col], i1, resp.Rows[1]) {
			return nil, rows, bad
		}
		if gbar[b], err = codec.New(resp.Table); err != nil {
			return nil, rows, failure.Unexpected("resolver returned an invalid table for byte %d", b)
		}
	}
	for c := range rows {
		for _, r := range rows[c] {
			if r < 0 {
				return nil, rows, failure.Unexpected("missing Column after Step 3.2")
			}
		}
	}
	return gbar.Inverse(), rows, nil
}

// columnCoefficients scales each byte of the linear layer against row 0 of
// its column, using the fault set that hit row 0.
func columnCoefficients(encrypt bool, sets [4][]faultSet, gbarInv codec.Vector, rows [4][4]int) ([]byte, error) {
	c := make([]byte, 16)
	for b := range c {
		row := b % 4
		if row == 0 {
			c[b] = 1
			continue
		}
		col := b / 4
		k := 0
		for rows[col][k] != 0 {
			k++
		}
		set := sets[col][k]
		coef := gf256.Div(aesref.MixCoef(row, 0, !encrypt), aesref.MixCoef(0, 0, !encrypt))

		found := false
		for _, f := range set {
			ti := gbarInv[b].Encode(set[0][row] ^ f[row])
			t0 := gbarInv[col*4].Encode(set[0][0] ^ f[0])
			if ti == 0 {
				continue
			}
			ci := gf256.Mul(gf256.Inv(ti), gf256.Mul(t0, coef))
			if found && ci != c[b] {
				return nil, failure.Unexpected("Step 3.3: Found a different value for C associated with byte %d", b)
			}
			c[b], found = ci, true
		}
		if !found {
			return nil, failure.Unexpected("Step 3.3: Fail to compute a value for C associated with byte %d", b)
		}
	}
	return c, nil
}

// Stage3 recovers the linear part of the last layer encodings. It returns
// the inverse encodings, the fault coordinate reaching each state byte and
// the per byte scale factors.
func Stage3(p *Proxy, res resolver.Resolver, gtildeInv codec.Vector, input []byte) (codec.Vector, []int, []byte, error) {
	glog.Infof("Stage 3 faulting round %d", stage2Round(p))
	sets, positions, err := collectColumnFaults(p, gtildeInv, input)
	if err != nil {
		return nil, nil, nil, err
	}
	gbarInv, rows, err := linearLayer(res, p.IsEncrypt(), stage2Round(p), sets, positions)
	if err != nil {
		return nil, nil, nil, err
	}
	roundShift := make([]int, 16)
	for col := range rows {
		for k, row := range rows[col] {
			roundShift[4*col+row] = positions[col][k]
		}
	}
	c, err := columnCoefficients(p.IsEncrypt(), sets, gbarInv, rows)
	if err != nil {
		return nil, nil, nil, err
	}
	return gbarInv, roundShift, c, nil
}
