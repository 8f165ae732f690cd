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

// Linear layer resolver.
//
// Two fault sets injected on rows i0 and i1 of the same column give, for the
// output bytes p0 and p1, a GF(2)-linear map A = L∘m(rho)∘L^-1 where L is the
// unknown output encoding of byte p0 and m(rho) multiplies by a ratio of
// MixColumns coefficients. The ratio identifies (i0, i1), and the
// conjugation recovers L up to a scalar.
package resolver

import (
	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/gf256"
)

type Request struct {
	// Matrix[i] is the image of bit i.
	Matrix  []int  `json:"matrix"`
	Rows    [2]int `json:"rows"`
	Encrypt bool   `json:"encrypt"`
}

type Response struct {
	Found bool   `json:"found"`
	Rows  [2]int `json:"rows"`
	// Table[x] == L(c*x) for some nonzero c.
	Table []int `json:"table"`
}

//go:generate mockgen -destination=../mocks/resolver.go -package=mocks github.com/SideChannelMarvels/DarkPhoenix/resolver Resolver
type Resolver interface {
	Resolve(req *Request) (*Response, error)
}

// Local solves requests in-process.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

// Ratio returns the multiplier seen on output row p0 when the faults of the
// first set hit row i0 and those of the second set hit row i1.
func Ratio(p0, p1, i0, i1 int, encrypt bool) byte {
	m := func(r, c int) byte { return aesref.MixCoef(r, c, !encrypt) }
	return gf256.Div(
		gf256.Mul(m(p0, i1), m(p1, i0)),
		gf256.Mul(m(p1, i1), m(p0, i0)))
}

func apply(rows *[8]byte, x byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		if x&(1<<uint(i)) != 0 {
			r ^= rows[i]
		}
	}
	return r
}

// conjugate builds g with g(rho^k) = A^k(1) for k < 8, extended linearly.
// It fails when the powers of rho or the iterates of A are not a basis, or
// when A does not satisfy the minimal polynomial of rho.
func conjugate(rows *[8]byte, rho byte) ([]int, bool) {
	var powers, iter [9]byte
	powers[0], iter[0] = 1, 1
	for k := 1; k <= 8; k++ {
		powers[k] = gf256.Mul(powers[k-1], rho)
		iter[k] = apply(rows, iter[k-1])
	}

	table := make([]int, 256)
	for i := range table {
		table[i] = -1
	}
	var used [256]bool
	for s := 0; s < 256; s++ {
		var x, y byte
		for k := 0; k < 8; k++ {
			if s&(1<<uint(k)) != 0 {
				x ^= powers[k]
				y ^= iter[k]
			}
		}
		if table[x] != -1 || used[y] {
			return nil, false
		}
		table[x] = int(y)
		used[y] = true
	}
	if table[powers[8]] != int(iter[8]) {
		return nil, false
	}
	return table, true
}

func (l *Local) Resolve(req *Request) (*Response, error) {
	if len(req.Matrix) != 8 {
		return nil, failure.InvalidArgument("matrix must have 8 rows, got %d", len(req.Matrix))
	}
	var rows [8]byte
	for i, v := range req.Matrix {
		if v < 0 || v > 255 {
			return nil, failure.InvalidArgument("matrix row %d out of range (%d)", i, v)
		}
		rows[i] = byte(v)
	}
	p0, p1 := req.Rows[0], req.Rows[1]
	if p0 < 0 || p0 > 3 || p1 < 0 || p1 > 3 || p0 == p1 {
		return nil, failure.InvalidArgument("invalid rows (%d, %d)", p0, p1)
	}

	resp := &Response{}
	for _, pair := range combin.Permutations(4, 2) {
		rho := Ratio(p0, p1, pair[0], pair[1], req.Encrypt)
		table, ok := conjugate(&rows, rho)
		if !ok {
			continue
		}
		if resp.Found {
			glog.V(1).Infof("Resolver: rows %v and %v both match", resp.Rows, pair)
			return &Response{}, nil
		}
		resp.Found = true
		resp.Rows = [2]int{pair[0], pair[1]}
		resp.Table = table
	}
	glog.V(2).Infof("Resolver: rows (%d, %d) -> %v (found %v)", p0, p1, resp.Rows, resp.Found)
	return resp, nil
}
