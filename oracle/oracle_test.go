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

package oracle_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

type roundCipher struct {
	c *aesref.Cipher
}

func (r roundCipher) Rounds() int { return r.c.Rounds() }

func (r roundCipher) ApplyRound(data []byte, round int) ([]byte, error) {
	return r.c.Round(data, round), nil
}

func TestFaultByRounds(t *testing.T) {
	c, err := aesref.NewCipher(make([]byte, 16), 0, true)
	if err != nil {
		t.Fatal(err)
	}
	wb := roundCipher{c}
	data := []byte("0123456789abcdef")

	clean, err := oracle.FaultByRounds(wb, data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := c.Apply(data); !bytes.Equal(clean, want) {
		t.Errorf("Unfaulted output (%x) did not match expected (%x)", clean, want)
	}

	// A fault at the start of the last round changes exactly one byte.
	faulty, err := oracle.FaultByRounds(wb, data, []oracle.Fault{{Round: 9, Byte: 5, Value: 0x10}})
	if err != nil {
		t.Fatal(err)
	}
	diff := 0
	for i := range faulty {
		if faulty[i] != clean[i] {
			diff++
		}
	}
	if diff != 1 {
		t.Errorf("Last round fault changed %d bytes, want 1", diff)
	}

	// One round earlier it spreads over a full column.
	faulty, _ = oracle.FaultByRounds(wb, data, []oracle.Fault{{Round: 8, Byte: 5, Value: 0x10}})
	diff = 0
	for i := range faulty {
		if faulty[i] != clean[i] {
			diff++
		}
	}
	if diff != 4 {
		t.Errorf("Round 8 fault changed %d bytes, want 4", diff)
	}
	if !bytes.Equal(data, []byte("0123456789abcdef")) {
		t.Errorf("FaultByRounds modified its input")
	}
}

func TestFaultByRoundsValidation(t *testing.T) {
	c, _ := aesref.NewCipher(make([]byte, 16), 0, true)
	for _, f := range []oracle.Fault{
		{Round: 10, Byte: 0, Value: 1},
		{Round: 1, Byte: 16, Value: 1},
		{Round: 1, Byte: 0, Value: 0},
	} {
		if _, err := oracle.FaultByRounds(roundCipher{c}, make([]byte, 16), []oracle.Fault{f}); !errors.Is(err, failure.ErrInvalidArgument) {
			t.Errorf("FaultByRounds accepted %v: %v", f, err)
		}
	}
}
