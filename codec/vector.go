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

package codec

import (
	"io"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
)

// Vector applies one permutation per byte position. Buffers longer than the
// vector are processed block by block.
type Vector []*Perm8

func NewIdentityVector(n int) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = NewIdentity()
	}
	return v
}

func NewRandomVector(n int, r io.Reader) (Vector, error) {
	v := make(Vector, n)
	for i := range v {
		var err error
		if v[i], err = NewRandom(r); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// FromTables builds a vector from encode tables.
func FromTables(tables [][]int) (Vector, error) {
	v := make(Vector, len(tables))
	for i, t := range tables {
		var err error
		if v[i], err = New(t); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// FromAffine builds x -> alphas[i]*x ^ betas[i] per position. A nil alphas
// means all ones, a nil betas all zeros; both nil yields a nil vector.
func FromAffine(alphas, betas []byte) (Vector, error) {
	if alphas == nil && betas == nil {
		return nil, nil
	}
	n := len(alphas)
	if alphas == nil {
		n = len(betas)
	} else if betas != nil && len(betas) != n {
		return nil, failure.InvalidArgument("affine parameters length mismatch (%d, %d)", len(alphas), len(betas))
	}
	v := make(Vector, n)
	for i := range v {
		a, b := byte(1), byte(0)
		if alphas != nil {
			a = alphas[i]
		}
		if betas != nil {
			b = betas[i]
		}
		var err error
		if v[i], err = NewAffine(a, b); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v Vector) Tables() [][]int {
	t := make([][]int, len(v))
	for i, p := range v {
		t[i] = p.Table()
	}
	return t
}

// Combine returns the position-wise v∘o. Both vectors must have the same
// width.
func (v Vector) Combine(o Vector) (Vector, error) {
	if len(o) != len(v) {
		return nil, failure.InvalidArgument("cannot combine vectors of width %d and %d", len(v), len(o))
	}
	r := make(Vector, len(v))
	for i := range r {
		r[i] = v[i].Combine(o[i])
	}
	return r, nil
}

func (v Vector) Inverse() Vector {
	r := make(Vector, len(v))
	for i, p := range v {
		r[i] = p.Inverse()
	}
	return r
}

func (v Vector) apply(d []byte, decode bool) ([]byte, error) {
	if len(v) == 0 || len(d)%len(v) != 0 {
		return nil, failure.InvalidArgument("data length (%d) must be a multiple of %d", len(d), len(v))
	}
	out := make([]byte, len(d))
	for i, x := range d {
		p := v[i%len(v)]
		if decode {
			out[i] = p.dec[x]
		} else {
			out[i] = p.enc[x]
		}
	}
	return out, nil
}

func (v Vector) Encode(d []byte) ([]byte, error) {
	return v.apply(d, false)
}

func (v Vector) Decode(d []byte) ([]byte, error) {
	return v.apply(d, true)
}

func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if !v[i].Equal(o[i]) {
			return false
		}
	}
	return true
}
