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
	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/gf256"
)

type affine struct {
	lambda, beta byte
}

// columnMatch finds the affine parameters of the four bytes of a column from
// faults injected on one row. Row 0 candidates are bucketed by the
// differences they give on the first half of the faults; each other row,
// scaled to row 0 through the MixColumns coefficients, must land in a bucket
// and agree on the second half too.
type columnMatch struct {
	sbox    *[256]byte
	coef    [4]byte
	lambdas [4][]byte
	first   faultSet
	second  faultSet

	buckets map[string][]affine
	// Second half signatures of row 0 candidates.
	seconds map[affine]string
}

func allLambdas() []byte {
	l := make([]byte, 255)
	for i := range l {
		l[i] = byte(i + 1)
	}
	return l
}

func newColumnMatch(col int, faults faultSet, mid int, encrypt bool, fpos int, limited []byte) (*columnMatch, error) {
	m := &columnMatch{
		buckets: make(map[string][]affine),
		seconds: make(map[affine]string),
	}
	if encrypt {
		m.sbox = &aesref.InvSBox
	} else {
		m.sbox = &aesref.SBox
	}
	for row := 1; row < 4; row++ {
		m.coef[row] = gf256.Div(aesref.MixCoef(0, fpos, !encrypt), aesref.MixCoef(row, fpos, !encrypt))
	}

	if limited == nil {
		for row := range m.lambdas {
			m.lambdas[row] = allLambdas()
		}
	} else {
		if len(limited) != 4 {
			return nil, failure.Unexpected("Expect an array of 4 elements, get %d elements", len(limited))
		}
		for row := range m.lambdas {
			if limited[row] == 0 {
				return nil, failure.Unexpected("0 isn't a valid lambda value")
			}
			// Lambdas are given in state order; the column sees them shifted.
			if encrypt {
				m.lambdas[row] = []byte{limited[(4+row-col)%4]}
			} else {
				m.lambdas[row] = []byte{limited[(col+row)%4]}
			}
		}
	}

	if mid <= 1 || mid+1 >= len(faults) {
		return nil, failure.InvalidArgument("Invalid value of midalpha (%d), expect a value between 2 and %d", mid, len(faults))
	}
	m.first = faults[:mid+1]
	m.second = append(faultSet{faults[0]}, faults[mid+1:]...)
	return m, nil
}

// signature lists, for every fault after the first, the difference at the
// input of the last S-box layer, scaled by coef when non-zero.
func (m *columnMatch) signature(set faultSet, row int, a affine, coef byte) string {
	in := func(x byte) byte {
		return m.sbox[gf256.Mul(a.lambda, x)^a.beta]
	}
	v0 := in(set[0][row])
	sig := make([]byte, len(set)-1)
	for i, f := range set[1:] {
		d := v0 ^ in(f[row])
		if coef != 0 {
			d = gf256.Mul(d, coef)
		}
		sig[i] = d
	}
	return string(sig)
}

func (m *columnMatch) bucketRowZero() {
	for _, lambda := range m.lambdas[0] {
		for beta := 0; beta < 256; beta++ {
			a := affine{lambda, byte(beta)}
			sig := m.signature(m.first, 0, a, 0)
			m.buckets[sig] = append(m.buckets[sig], a)
		}
	}
}

func (m *columnMatch) second0(a affine) string {
	if sig, ok := m.seconds[a]; ok {
		return sig
	}
	sig := m.signature(m.second, 0, a, 0)
	m.seconds[a] = sig
	return sig
}

// solutions returns every (row 0, row) parameter pair consistent on both
// halves.
func (m *columnMatch) solutions(row int) [][2]affine {
	var sols [][2]affine
	for _, lambda := range m.lambdas[row] {
		for beta := 0; beta < 256; beta++ {
			a := affine{lambda, byte(beta)}
			candidates, ok := m.buckets[m.signature(m.first, row, a, m.coef[row])]
			if !ok {
				continue
			}
			sig2 := m.signature(m.second, row, a, m.coef[row])
			for _, r := range candidates {
				if m.second0(r) == sig2 {
					sols = append(sols, [2]affine{r, a})
				}
			}
		}
	}
	return sols
}

func (m *columnMatch) solve() (bool, []byte, []byte) {
	m.bucketRowZero()
	var found [4]affine
	for row := 1; row < 4; row++ {
		sols := m.solutions(row)
		if len(sols) != 1 {
			return false, nil, nil
		}
		if row > 1 && sols[0][0] != found[0] {
			return false, nil, nil
		}
		found[0], found[row] = sols[0][0], sols[0][1]
	}
	lambdas := make([]byte, 4)
	betas := make([]byte, 4)
	for row, a := range found {
		lambdas[row], betas[row] = a.lambda, a.beta
	}
	return true, lambdas, betas
}

// MatchColumn recovers the affine parameters of column col from a fault set
// (reference first) split after entry mid. Each row of the column is tried
// as the faulted one. limited restricts the multipliers to one value per
// state row, or is nil for no restriction.
func MatchColumn(col int, faults [][]byte, mid int, encrypt bool, limited []byte) (bool, []byte, []byte, error) {
	for fpos := 0; fpos < 4; fpos++ {
		m, err := newColumnMatch(col, faults, mid, encrypt, fpos, limited)
		if err != nil {
			return false, nil, nil, err
		}
		if ok, lambdas, betas := m.solve(); ok {
			return true, lambdas, betas, nil
		}
	}
	return false, nil, nil, nil
}
