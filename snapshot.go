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
	"compress/gzip"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// HexBytes is a byte buffer stored as a hex string.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("hex decode failed: %v", err)
	}
	*h = b
	return nil
}

// ByteList is a byte buffer stored as an array of integers.
type ByteList []byte

func (l ByteList) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(l))
	for i, b := range l {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

func (l *ByteList) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	b := make([]byte, len(ints))
	for i, x := range ints {
		if x < 0 || x > 255 {
			return fmt.Errorf("byte value %d out of range", x)
		}
		b[i] = byte(x)
	}
	*l = b
	return nil
}

// Snapshot is the resumable state of an attack. Fields of stages not reached
// yet are empty.
type Snapshot struct {
	State              State        `json:"state"`
	ReferenceInput     HexBytes     `json:"reference_input,omitempty"`
	ColumnTables       [][]HexBytes `json:"column_tables,omitempty"`
	SiblingSpecs       [][]int      `json:"sibling_specs,omitempty"`
	GtildeInvTable     [][]int      `json:"gtilde_inv_table,omitempty"`
	GbarInvTable       [][]int      `json:"gbar_inv_table,omitempty"`
	RoundShift         []int        `json:"round_shift,omitempty"`
	ColumnCoefficients ByteList     `json:"column_coefficients,omitempty"`
	LambdaPerByte      ByteList     `json:"lambda_per_byte,omitempty"`
	BetaPerByte        ByteList     `json:"beta_per_byte,omitempty"`
	RoundKeyParts      []HexBytes   `json:"round_key_parts,omitempty"`
}

// Exported for testing.
func LoadSnapshotIo(src io.Reader) (*Snapshot, error) {
	zipper, err := gzip.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("gzip NewReader failed %v", err)
	}
	s := &Snapshot{}
	if err = json.NewDecoder(zipper).Decode(s); err != nil {
		return nil, fmt.Errorf("JSON decoder failed %v", err)
	}
	return s, nil
}

// Loads a snapshot from file.
func LoadSnapshot(filename string) (*Snapshot, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("Error opening snapshot file: %v", err)
	}
	defer f.Close()
	return LoadSnapshotIo(f)
}

// Exported for testing.
func (s *Snapshot) SaveIo(dst io.Writer) error {
	var err error
	zipper := gzip.NewWriter(dst)
	if err = json.NewEncoder(zipper).Encode(s); err != nil {
		return fmt.Errorf("JSON encoder failed %v", err)
	}
	if err = zipper.Close(); err != nil {
		return fmt.Errorf("gzip close failed %v", err)
	}
	return nil
}

// Save writes next to filename and renames, so readers never see a partial
// snapshot.
func (s *Snapshot) Save(filename string) error {
	f, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("Error creating snapshot file: %v", err)
	}
	defer os.Remove(f.Name())
	if err = s.SaveIo(f); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("Error closing snapshot file: %v", err)
	}
	if err = os.Rename(f.Name(), filename); err != nil {
		return fmt.Errorf("Error renaming snapshot file: %v", err)
	}
	return nil
}
