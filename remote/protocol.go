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

package remote

import (
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

// Commands of the simple-serial line protocol. Payloads are hex encoded,
// one command or response per line.
const (
	cmdVersion = 'v'
	cmdInfo    = 'i'
	cmdApply   = 'p'
	cmdReverse = 'q'
	cmdFault   = 'f'
	cmdFlush   = 'x'

	resOk      = 'r'
	resError   = 'e'
	resVersion = "z00"

	blockSize = 16
)

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// encodeFaults packs n, then (round, byte, value) per fault, then the block.
func encodeFaults(data []byte, faults []oracle.Fault) ([]byte, error) {
	if len(faults) > 255 {
		return nil, failure.InvalidArgument("Too many faults: %d", len(faults))
	}
	frame := []byte{byte(len(faults))}
	for _, f := range faults {
		if f.Round < 0 || f.Round > 255 || f.Byte < 0 || f.Byte > 255 {
			return nil, failure.InvalidArgument("Fault %v cannot be encoded", f)
		}
		frame = append(frame, byte(f.Round), byte(f.Byte), f.Value)
	}
	return append(frame, data...), nil
}

func decodeFaults(frame []byte) ([]byte, []oracle.Fault, error) {
	if len(frame) == 0 {
		return nil, nil, failure.InvalidArgument("Empty fault frame")
	}
	n := int(frame[0])
	if len(frame) != 1+3*n+blockSize {
		return nil, nil, failure.InvalidArgument(
			"Fault frame of %d bytes does not hold %d faults and a block", len(frame), n)
	}
	faults := make([]oracle.Fault, n)
	for i := range faults {
		f := frame[1+3*i:]
		faults[i] = oracle.Fault{Round: int(f[0]), Byte: int(f[1]), Value: f[2]}
	}
	return frame[1+3*n:], faults, nil
}
