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
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

const (
	// Fresh reference inputs tried per column.
	columnRetries = 10
	// Fault values per coordinate, and where the matcher splits them.
	affineFaultValues = 16
	affineSplit       = 4
)

func stage4Round(p *Proxy) int {
	if p.LastRoundHasMixColumns() {
		return p.Rounds() - 2
	}
	return p.Rounds() - 3
}

// affineFault targets row pos of column col, before the shift of round.
func affineFault(p *Proxy, round, col, pos int, value byte) oracle.Fault {
	b := (col*4 + pos) % 16
	if p.IsEncrypt() {
		b = aesref.ShiftRowIndex[b]
	} else {
		b = aesref.InvShiftRowIndex[b]
	}
	return oracle.Fault{Round: round, Byte: b, Value: value}
}

// affineFaults looks for a row of column col whose faults stay in col and
// returns the reference column followed by one observation per fault value.
func affineFaults(p *Proxy, chain *Chain, input, ref []byte, round, col int) (faultSet, error) {
	for pos := 0; pos < 16; pos++ {
		set := faultSet{ref[4*col : 4*col+4]}
		moved := false
		for v := 1; v <= affineFaultValues && !moved; v++ {
			f := affineFault(p, round, col, pos, byte(v))
			out, err := p.ApplyFault(input, chain, f)
			if err != nil {
				return nil, err
			}
			diff := diffPositions(ref, out)
			if len(diff) != 4 {
				return nil, failure.FaultPosition(round, f.Byte)
			}
			if fcol := diff[0] / 4; fcol != col {
				if v != 1 {
					return nil, failure.WhiteBox("A fault injection position has changed when applying a different fault value")
				}
				moved = true
				continue
			}
			if diff[0]%4 != 0 || diff[3] != diff[0]+3 {
				return nil, failure.FaultPosition(round, f.Byte)
			}
			set = append(set, out[4*col:4*col+4])
		}
		if !moved {
			return set, nil
		}
	}
	return nil, failure.FaultPosition(round)
}

// solveColumn runs the matcher on column col, drawing a new reference input
// after each failed attempt.
func solveColumn(p *Proxy, chain *Chain, input, ref []byte, round, col int, limited []byte) ([]byte, []byte, error) {
	for r := 0; r < columnRetries; r++ {
		if r > 0 {
			var err error
			if input, err = p.RandomInput(r); err != nil {
				return nil, nil, err
			}
			if ref, err = p.ApplyChain(input, chain); err != nil {
				return nil, nil, err
			}
		}
		set, err := affineFaults(p, chain, input, ref, round, col)
		if err != nil {
			return nil, nil, err
		}
		ok, lambdas, betas, err := MatchColumn(col, set, affineSplit, p.IsEncrypt(), limited)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			return lambdas, betas, nil
		}
		glog.V(1).Infof("Round %d column %d: no match, retrying (%d/%d)", round, col, r+1, columnRetries)
	}
	if limited == nil {
		return nil, nil, failure.Unexpected("Fail to extract lambda and beta for column %d after %d retries", col, columnRetries)
	}
	return nil, nil, failure.Unexpected("Fail to extract beta for column %d after %d retries", col, columnRetries)
}

// firstPerm is the decoding of the last layer recovered by Stages 2 and 3.
func firstPerm(gtildeInv, gbarInv codec.Vector, c []byte) (codec.Vector, error) {
	scale, err := codec.FromAffine(c, nil)
	if err != nil {
		return nil, err
	}
	if scale, err = scale.Combine(gbarInv); err != nil {
		return nil, err
	}
	return scale.Combine(gtildeInv)
}

// Stage4 recovers the affine encodings (x -> lambda*x ^ beta) left at the
// S-box input of the round before the last one.
func Stage4(p *Proxy, gtildeInv, gbarInv codec.Vector, c, input []byte) ([]byte, []byte, error) {
	round := stage4Round(p)
	glog.Infof("Stage 4 faulting round %d", round)
	first, err := firstPerm(gtildeInv, gbarInv, c)
	if err != nil {
		return nil, nil, err
	}
	output := []codec.Vector{first}
	if err = p.PrepareFaultPosition(round, output, true); err != nil {
		return nil, nil, err
	}
	chain := p.Chain(output, true)
	ref, err := p.ApplyChain(input, chain)
	if err != nil {
		return nil, nil, err
	}

	lambda := make([]byte, 0, 16)
	beta := make([]byte, 0, 16)
	var col0 []byte
	for col := 0; col < 4; col++ {
		l, b, err := solveColumn(p, chain, input, ref, round, col, col0)
		if err != nil {
			return nil, nil, err
		}
		if col == 0 {
			col0 = l
		}
		lambda = append(lambda, l...)
		beta = append(beta, b...)
		glog.V(1).Infof("Stage 4 column %d: lambda %x beta %x", col, l, b)
	}

	shifted := aesref.ShiftRows(lambda)
	if !p.IsEncrypt() {
		shifted = aesref.InvShiftRows(lambda)
	}
	for x := range shifted {
		if shifted[x] != shifted[x-x%4] {
			return nil, nil, failure.Unexpected("Different Lambda have been found for the same column")
		}
	}
	return lambda, beta, nil
}
