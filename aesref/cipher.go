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

package aesref

import (
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/gf256"
)

// DefaultRounds returns the number of rounds for a key of keyLen bytes.
func DefaultRounds(keyLen int) int {
	switch keyLen {
	case 16:
		return 10
	case 24:
		return 12
	case 32:
		return 14
	}
	return 0
}

// DefaultKeyLen is the inverse of DefaultRounds.
func DefaultKeyLen(rounds int) int {
	switch rounds {
	case 10:
		return 16
	case 12:
		return 24
	case 14:
		return 32
	}
	return 0
}

func scheduleCore(prev [4]byte, i, nk int) [4]byte {
	switch {
	case i%nk == 0:
		t := [4]byte{SBox[prev[1]], SBox[prev[2]], SBox[prev[3]], SBox[prev[0]]}
		t[0] ^= gf256.Pow(2, i/nk-1)
		return t
	case nk > 6 && i%nk == 4:
		return [4]byte{SBox[prev[0]], SBox[prev[1]], SBox[prev[2]], SBox[prev[3]]}
	}
	return prev
}

func checkKeyLen(n int) error {
	if n != 16 && n != 24 && n != 32 {
		return failure.InvalidArgument("Invalid key length %d", n)
	}
	return nil
}

// ExpandKey returns the rounds+1 round keys derived from key.
func ExpandKey(key []byte, rounds int) ([][]byte, error) {
	if err := checkKeyLen(len(key)); err != nil {
		return nil, err
	}
	if rounds <= 0 {
		return nil, failure.InvalidArgument("Invalid round count %d", rounds)
	}
	nk := len(key) / 4
	words := make([][4]byte, 4*(rounds+1))
	for i := range words {
		if i < nk {
			copy(words[i][:], key[4*i:])
			continue
		}
		t := scheduleCore(words[i-1], i, nk)
		for k := 0; k < 4; k++ {
			words[i][k] = words[i-nk][k] ^ t[k]
		}
	}
	keys := make([][]byte, rounds+1)
	for r := range keys {
		keys[r] = make([]byte, 16)
		for w := 0; w < 4; w++ {
			copy(keys[r][4*w:], words[4*r+w][:])
		}
	}
	return keys, nil
}

// RevertKey walks the key schedule backward. part holds the consecutive round
// key bytes starting at round key index round (16, 24 or 32 bytes); the
// returned slice is the cipher key of the same length.
func RevertKey(part []byte, round int) ([]byte, error) {
	if err := checkKeyLen(len(part)); err != nil {
		return nil, err
	}
	if round < 0 {
		return nil, failure.InvalidArgument("Invalid round %d", round)
	}
	nk := len(part) / 4
	start := 4 * round
	words := make([][4]byte, start+nk)
	for j := 0; j < nk; j++ {
		copy(words[start+j][:], part[4*j:])
	}
	for i := start + nk - 1; i >= nk; i-- {
		t := scheduleCore(words[i-1], i, nk)
		for k := 0; k < 4; k++ {
			words[i-nk][k] = words[i][k] ^ t[k]
		}
	}
	key := make([]byte, len(part))
	for j := 0; j < nk; j++ {
		copy(key[4*j:], words[j][:])
	}
	return key, nil
}

// Cipher runs AES one round at a time. Round r of encryption adds k0 first
// when r == 0, then applies SubBytes, ShiftRows, MixColumns (except in the
// last round) and adds k(r+1). Decryption round r undoes encryption round
// Rounds()-1-r.
type Cipher struct {
	keys    [][]byte
	encrypt bool
}

// NewCipher expands key over rounds rounds; rounds == 0 selects the standard
// count for the key length.
func NewCipher(key []byte, rounds int, encrypt bool) (*Cipher, error) {
	if rounds == 0 {
		rounds = DefaultRounds(len(key))
	}
	var err error
	var keys [][]byte
	if keys, err = ExpandKey(key, rounds); err != nil {
		return nil, err
	}
	return &Cipher{keys: keys, encrypt: encrypt}, nil
}

func (c *Cipher) Rounds() int {
	return len(c.keys) - 1
}

func (c *Cipher) IsEncrypt() bool {
	return c.encrypt
}

// RoundKey returns a copy of round key r (0..Rounds()).
func (c *Cipher) RoundKey(r int) []byte {
	return append([]byte(nil), c.keys[r]...)
}

func (c *Cipher) encryptRound(d []byte, r int) []byte {
	if r == 0 {
		d = Xor(d, c.keys[0])
	}
	d = ShiftRows(SubBytes(d))
	if r < c.Rounds()-1 {
		d = MixColumns(d)
	}
	return Xor(d, c.keys[r+1])
}

func (c *Cipher) decryptRound(d []byte, r int) []byte {
	er := c.Rounds() - 1 - r
	d = Xor(d, c.keys[er+1])
	if er < c.Rounds()-1 {
		d = InvMixColumns(d)
	}
	d = InvSubBytes(InvShiftRows(d))
	if er == 0 {
		d = Xor(d, c.keys[0])
	}
	return d
}

// Round applies round r in the cipher's direction.
func (c *Cipher) Round(d []byte, r int) []byte {
	if c.encrypt {
		return c.encryptRound(d, r)
	}
	return c.decryptRound(d, r)
}

// Apply runs every round in the cipher's direction.
func (c *Cipher) Apply(d []byte) []byte {
	for r := 0; r < c.Rounds(); r++ {
		d = c.Round(d, r)
	}
	return d
}
