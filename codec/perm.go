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

// Byte permutations and per-position encoding vectors.
package codec

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/gf256"
)

// Perm8 is a bijection on bytes.
type Perm8 struct {
	enc [256]byte
	dec [256]byte
}

func (p *Perm8) fillInverse() {
	for i, v := range p.enc {
		p.dec[v] = byte(i)
	}
}

// New builds a permutation from its encode table.
func New(table []int) (*Perm8, error) {
	if len(table) != 256 {
		return nil, failure.InvalidArgument("length of perm (%d) must be equal to 256", len(table))
	}
	var seen [256]bool
	p := &Perm8{}
	for i, v := range table {
		if v < 0 || v > 255 || seen[v] {
			return nil, failure.InvalidArgument("provided an invalid permutation")
		}
		seen[v] = true
		p.enc[i] = byte(v)
	}
	p.fillInverse()
	return p, nil
}

// FromBytes builds a permutation from a 256-byte encode table.
func FromBytes(table []byte) (*Perm8, error) {
	t := make([]int, len(table))
	for i, v := range table {
		t[i] = int(v)
	}
	return New(t)
}

func NewIdentity() *Perm8 {
	p := &Perm8{}
	for i := range p.enc {
		p.enc[i] = byte(i)
		p.dec[i] = byte(i)
	}
	return p
}

// NewAffine returns x -> alpha*x ^ beta over GF(2^8).
func NewAffine(alpha, beta byte) (*Perm8, error) {
	if alpha == 0 {
		return nil, failure.InvalidArgument("affine multiplier must not be zero")
	}
	p := &Perm8{}
	row := gf256.Row(alpha)
	for i := range p.enc {
		p.enc[i] = row[i] ^ beta
	}
	p.fillInverse()
	return p, nil
}

// Uniform value in [0, n) from r, n <= 256.
func uniform(r io.ByteReader, n int) (int, error) {
	limit := 256 - 256%n
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if int(b) < limit {
			return int(b) % n, nil
		}
	}
}

func shuffle(r io.ByteReader) (*Perm8, error) {
	p := NewIdentity()
	for i := 255; i > 0; i-- {
		j, err := uniform(r, i+1)
		if err != nil {
			return nil, fmt.Errorf("Random permutation failed: %v", err)
		}
		p.enc[i], p.enc[j] = p.enc[j], p.enc[i]
	}
	p.fillInverse()
	return p, nil
}

// NewRandom draws a uniform permutation from r, or from crypto/rand when r is nil.
func NewRandom(r io.Reader) (*Perm8, error) {
	if r == nil {
		r = rand.Reader
	}
	if br, ok := r.(io.ByteReader); ok {
		return shuffle(br)
	}
	return shuffle(bufio.NewReader(r))
}

// Stream returns a reproducible byte stream for seed.
func Stream(seed []byte) io.Reader {
	h := sha3.NewShake128()
	h.Write(seed)
	return bufio.NewReader(h)
}

// NewSeededRandom derives a permutation deterministically from seed.
func NewSeededRandom(seed []byte) *Perm8 {
	p, err := NewRandom(Stream(seed))
	if err != nil {
		// A SHAKE stream never fails.
		panic(err)
	}
	return p
}

func (p *Perm8) Encode(x byte) byte {
	return p.enc[x]
}

func (p *Perm8) Decode(x byte) byte {
	return p.dec[x]
}

func (p *Perm8) EncodeBytes(d []byte) []byte {
	out := make([]byte, len(d))
	for i, x := range d {
		out[i] = p.enc[x]
	}
	return out
}

func (p *Perm8) DecodeBytes(d []byte) []byte {
	out := make([]byte, len(d))
	for i, x := range d {
		out[i] = p.dec[x]
	}
	return out
}

// Combine returns p∘o, the permutation x -> p(o(x)).
func (p *Perm8) Combine(o *Perm8) *Perm8 {
	r := &Perm8{}
	for i := range r.enc {
		r.enc[i] = p.enc[o.enc[i]]
	}
	r.fillInverse()
	return r
}

func (p *Perm8) Inverse() *Perm8 {
	return &Perm8{enc: p.dec, dec: p.enc}
}

// Table returns the encode table.
func (p *Perm8) Table() []int {
	t := make([]int, 256)
	for i, v := range p.enc {
		t[i] = int(v)
	}
	return t
}

func (p *Perm8) Equal(o *Perm8) bool {
	return p.enc == o.enc
}
