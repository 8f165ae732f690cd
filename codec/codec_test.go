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

package codec_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/SideChannelMarvels/DarkPhoenix/codec"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/gf256"
)

func TestEncodeDecode(t *testing.T) {
	for i := 0; i < 8; i++ {
		p := codec.NewSeededRandom([]byte{byte(i)})
		for x := 0; x < 256; x++ {
			if got := p.Decode(p.Encode(byte(x))); got != byte(x) {
				t.Fatalf("Decode(Encode(%d)) = %d", x, got)
			}
		}
		if !p.Inverse().Inverse().Equal(p) {
			t.Errorf("Inverse is not an involution")
		}
	}
}

func TestCombine(t *testing.T) {
	a := codec.NewSeededRandom([]byte("a"))
	b := codec.NewSeededRandom([]byte("b"))
	c := a.Combine(b)
	for x := 0; x < 256; x++ {
		if c.Encode(byte(x)) != a.Encode(b.Encode(byte(x))) {
			t.Fatalf("Combine mismatch at %d", x)
		}
	}
	if !a.Combine(a.Inverse()).Equal(codec.NewIdentity()) {
		t.Errorf("a∘a^-1 is not the identity")
	}
}

func TestSeededIsReproducible(t *testing.T) {
	if !codec.NewSeededRandom([]byte("seed")).Equal(codec.NewSeededRandom([]byte("seed"))) {
		t.Errorf("Same seed produced different permutations")
	}
	if codec.NewSeededRandom([]byte("seed")).Equal(codec.NewSeededRandom([]byte("other"))) {
		t.Errorf("Different seeds produced the same permutation")
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	table := codec.NewIdentity().Table()
	table[1] = 0
	if _, err := codec.New(table); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("New accepted a duplicate entry: %v", err)
	}
	if _, err := codec.New(table[:10]); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("New accepted a short table: %v", err)
	}
	if _, err := codec.NewAffine(0, 1); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("NewAffine accepted a zero multiplier: %v", err)
	}
}

func TestAffine(t *testing.T) {
	p, err := codec.NewAffine(0x53, 0x21)
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 256; x++ {
		if got, want := p.Encode(byte(x)), gf256.Mul(0x53, byte(x))^0x21; got != want {
			t.Fatalf("Encode(%d) = %d, want %d", x, got, want)
		}
	}
}

func TestVector(t *testing.T) {
	v, err := codec.NewRandomVector(4, codec.Stream([]byte("vec")))
	if err != nil {
		t.Fatal(err)
	}
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	enc, err := v.Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if enc[i] != v[i%4].Encode(data[i]) {
			t.Errorf("Byte %d not encoded by position %d", i, i%4)
		}
	}
	dec, _ := v.Decode(enc)
	if !bytes.Equal(dec, data) {
		t.Errorf("Decoded (%v) did not match expected (%v)", dec, data)
	}
	if _, err := v.Encode(data[:5]); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("Encode accepted a misaligned buffer: %v", err)
	}

	round, err := codec.FromTables(v.Tables())
	if err != nil {
		t.Fatal(err)
	}
	if !round.Equal(v) {
		t.Errorf("FromTables(Tables()) differs")
	}
	id, err := v.Combine(v.Inverse())
	if err != nil {
		t.Fatal(err)
	}
	if !id.Equal(codec.NewIdentityVector(4)) {
		t.Errorf("v∘v^-1 is not the identity")
	}
	if _, err = v.Combine(codec.NewIdentityVector(3)); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("Combine of widths 4 and 3 returned %v", err)
	}
}

func TestFromAffine(t *testing.T) {
	if v, err := codec.FromAffine(nil, nil); v != nil || err != nil {
		t.Errorf("FromAffine(nil, nil) = %v, %v", v, err)
	}
	v, err := codec.FromAffine(nil, []byte{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if v[1].Encode(0) != 2 || v[0].Encode(5) != 4 {
		t.Errorf("FromAffine with default multipliers mismatch")
	}
}
