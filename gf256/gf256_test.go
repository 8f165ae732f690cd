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

package gf256_test

import (
	"testing"

	"github.com/SideChannelMarvels/DarkPhoenix/gf256"
)

// Shift-and-add multiply used as the reference.
func slowMul(a, b byte) byte {
	var p byte
	for b != 0 {
		if b&1 != 0 {
			p ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= 0x1b
		}
		b >>= 1
	}
	return p
}

func TestMul(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			if got, want := gf256.Mul(byte(a), byte(b)), slowMul(byte(a), byte(b)); got != want {
				t.Fatalf("Mul(%#x, %#x) = %#x, want %#x", a, b, got, want)
			}
		}
	}
	// FIPS-197 section 4.2 example.
	if got := gf256.Mul(0x57, 0x83); got != 0xc1 {
		t.Errorf("Mul(0x57, 0x83) = %#x, want 0xc1", got)
	}
}

func TestInvDiv(t *testing.T) {
	if gf256.Inv(0) != 0 {
		t.Errorf("Inv(0) = %#x, want 0", gf256.Inv(0))
	}
	for a := 1; a < 256; a++ {
		if got := gf256.Mul(byte(a), gf256.Inv(byte(a))); got != 1 {
			t.Errorf("a * Inv(a) = %#x for a = %#x", got, a)
		}
		if got := gf256.Div(gf256.Mul(byte(a), 0x1d), 0x1d); got != byte(a) {
			t.Errorf("Div(Mul(a, 0x1d), 0x1d) = %#x, want %#x", got, a)
		}
	}
}

func TestPowRow(t *testing.T) {
	if got := gf256.Pow(2, 8); got != 0x1b {
		t.Errorf("Pow(2, 8) = %#x, want 0x1b", got)
	}
	if got := gf256.Pow(3, -1); got != gf256.Inv(3) {
		t.Errorf("Pow(3, -1) = %#x, want %#x", got, gf256.Inv(3))
	}
	row := gf256.Row(0x0e)
	for x := 0; x < 256; x++ {
		if row[x] != gf256.Mul(0x0e, byte(x)) {
			t.Fatalf("Row(0x0e)[%d] mismatch", x)
		}
	}
}
