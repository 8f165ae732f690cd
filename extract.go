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
	"github.com/SideChannelMarvels/DarkPhoenix/codec"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
)

func emptyTables() [][]int {
	t := make([][]int, 16)
	for i := range t {
		t[i] = emptySlots()[:]
	}
	return t
}

// lastRounds recomputes the AES output from the state decoded by the
// recovered encodings.
func lastRounds(d []byte, keys [][]byte, encrypt bool) []byte {
	r := len(keys) - 1
	if encrypt {
		d = aesref.Xor(aesref.MixColumns(aesref.ShiftRows(aesref.SubBytes(d))), keys[r-1])
		return aesref.Xor(aesref.ShiftRows(aesref.SubBytes(d)), keys[r])
	}
	d = aesref.Xor(aesref.InvSubBytes(aesref.InvShiftRows(d)), keys[1])
	return aesref.Xor(aesref.InvSubBytes(aesref.InvShiftRows(aesref.InvMixColumns(d))), keys[0])
}

// ExternalEncodings returns the byte encodings the oracle applies to its
// input and its output around AES under key. Encode maps a plain AES byte
// to the byte the oracle reads or writes.
func ExternalEncodings(p *Proxy, key []byte, gtildeInv, gbarInv codec.Vector, c, lambda, beta []byte) (codec.Vector, codec.Vector, error) {
	var err error
	var keys [][]byte
	if keys, err = aesref.ExpandKey(key, p.Rounds()); err != nil {
		return nil, nil, err
	}
	var first, last codec.Vector
	if first, err = firstPerm(gtildeInv, gbarInv, c); err != nil {
		return nil, nil, err
	}
	if last, err = roundPerm(lambda, beta, p.IsEncrypt()); err != nil {
		return nil, nil, err
	}
	chain := p.Chain([]codec.Vector{first, last}, false)

	out := emptyTables()
	for i := 0; i < 256; i++ {
		var d []byte
		if d, err = chain.Apply(repeat(byte(i))); err != nil {
			return nil, nil, err
		}
		for b, x := range lastRounds(d, keys, p.IsEncrypt()) {
			if out[b][x] >= 0 {
				return nil, nil, failure.Unexpected("fail to compute output external encoding: same encoding value found twice")
			}
			out[b][x] = i
		}
	}
	var outEnc codec.Vector
	if outEnc, err = codec.FromTables(out); err != nil {
		return nil, nil, err
	}

	var back *aesref.Cipher
	if back, err = aesref.NewCipher(key, p.Rounds(), !p.IsEncrypt()); err != nil {
		return nil, nil, err
	}
	in := emptyTables()
	for i := 0; i < 256; i++ {
		var raw, plain []byte
		if raw, err = p.ApplyChain(repeat(byte(i)), nil); err != nil {
			return nil, nil, err
		}
		if plain, err = outEnc.Decode(raw); err != nil {
			return nil, nil, err
		}
		for b, x := range back.Apply(plain) {
			if in[b][x] >= 0 {
				return nil, nil, failure.Unexpected("fail to compute input external encoding: same encoding value found twice")
			}
			in[b][x] = i
		}
	}
	var inEnc codec.Vector
	if inEnc, err = codec.FromTables(in); err != nil {
		return nil, nil, err
	}
	return inEnc, outEnc, nil
}

func repeat(x byte) []byte {
	d := make([]byte, 16)
	for i := range d {
		d[i] = x
	}
	return d
}
