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
	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/codec"
)

var (
	sboxPerm    = mustPerm(aesref.SBox[:])
	invSboxPerm = mustPerm(aesref.InvSBox[:])
	unitLambdas = []byte{1, 1, 1, 1}
)

func mustPerm(table []byte) *codec.Perm8 {
	p, err := codec.FromBytes(table)
	if err != nil {
		panic(err)
	}
	return p
}

// roundPerm undoes the S-box layer after the affine map (lambda, beta).
func roundPerm(lambda, beta []byte, encrypt bool) (codec.Vector, error) {
	aff, err := codec.FromAffine(lambda, beta)
	if err != nil {
		return nil, err
	}
	box := sboxPerm
	if encrypt {
		box = invSboxPerm
	}
	v := make(codec.Vector, len(aff))
	for i, a := range aff {
		v[i] = box.Combine(a)
	}
	return v, nil
}

// keyPerm undoes a key addition and the S-box layer before it.
func keyPerm(key []byte, encrypt bool) (codec.Vector, error) {
	if encrypt {
		return roundPerm(nil, aesref.InvShiftRows(aesref.InvMixColumns(key)), true)
	}
	return roundPerm(nil, aesref.ShiftRows(key), false)
}

func stage5Rounds(p *Proxy, allRounds bool) int {
	switch {
	case allRounds && p.LastRoundHasMixColumns():
		return stage4Round(p) - 1
	case allRounds:
		return stage4Round(p)
	case p.Rounds() == 10:
		return 1
	}
	return 2
}

// Stage5 peels the rounds one by one from the output side and returns the
// round keys it crossed, outermost first.
func Stage5(p *Proxy, gtildeInv, gbarInv codec.Vector, c, lambda, beta, input []byte, allRounds bool) ([][]byte, error) {
	first, err := firstPerm(gtildeInv, gbarInv, c)
	if err != nil {
		return nil, err
	}
	last, err := roundPerm(lambda, beta, p.IsEncrypt())
	if err != nil {
		return nil, err
	}
	perms := []codec.Vector{first, last}

	n := stage5Rounds(p, allRounds)
	var parts [][]byte
	for i := 0; i < n; i++ {
		round := stage4Round(p) - 1 - i
		glog.Infof("Stage 5 faulting round %d (%d/%d)", round, i+1, n)
		if err = p.PrepareFaultPosition(round, perms, true); err != nil {
			return nil, err
		}
		chain := p.Chain(perms, true)
		var ref []byte
		if ref, err = p.ApplyChain(input, chain); err != nil {
			return nil, err
		}

		betas := make([]byte, 0, 16)
		for col := 0; col < 4; col++ {
			var b []byte
			if _, b, err = solveColumn(p, chain, input, ref, round, col, unitLambdas); err != nil {
				return nil, err
			}
			betas = append(betas, b...)
		}

		var key []byte
		if p.IsEncrypt() {
			key = aesref.MixColumns(aesref.ShiftRows(betas))
		} else {
			key = aesref.InvShiftRows(betas)
		}
		glog.V(1).Infof("Stage 5 round %d key part %x", round, key)
		var kp codec.Vector
		if kp, err = keyPerm(key, p.IsEncrypt()); err != nil {
			return nil, err
		}
		perms = append(perms, kp)
		parts = append(parts, key)
	}
	return parts, nil
}
