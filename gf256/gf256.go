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

// Arithmetic in the AES field GF(2^8) = GF(2)[x]/(x^8+x^4+x^3+x+1).
package gf256

const poly = 0x11b

var (
	expTable [510]byte
	logTable [256]int
	mulTable [256][256]byte
	invTable [256]byte
)

func init() {
	// 0x03 generates the multiplicative group; 0x02 only has order 51.
	x := 1
	for i := 0; i < 255; i++ {
		expTable[i] = byte(x)
		expTable[i+255] = byte(x)
		logTable[x] = i
		x = x ^ xtime(x)
	}
	for a := 1; a < 256; a++ {
		for b := 1; b < 256; b++ {
			mulTable[a][b] = expTable[logTable[a]+logTable[b]]
		}
		invTable[a] = expTable[(255-logTable[a])%255]
	}
}

func xtime(x int) int {
	x <<= 1
	if x&0x100 != 0 {
		x ^= poly
	}
	return x
}

func Mul(a, b byte) byte {
	return mulTable[a][b]
}

// Inv returns the multiplicative inverse of a. Inv(0) is 0.
func Inv(a byte) byte {
	return invTable[a]
}

// Div returns a * b^-1.
func Div(a, b byte) byte {
	return mulTable[a][invTable[b]]
}

// Pow returns a^n, n may be negative.
func Pow(a byte, n int) byte {
	if a == 0 {
		if n == 0 {
			return 1
		}
		return 0
	}
	e := (logTable[a] * n) % 255
	if e < 0 {
		e += 255
	}
	return expTable[e]
}

// Row returns the multiplication table of a: Row(a)[x] == Mul(a, x).
func Row(a byte) *[256]byte {
	return &mulTable[a]
}
