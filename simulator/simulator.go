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

// Simulated white-box AES targets.
//
// The state between two rounds is stored through a random byte encoding, and
// fault coordinates of the inner layers are shuffled, so the attack only sees
// what it would see on a real table-based implementation.
package simulator

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/codec"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

type Config struct {
	// 16, 24 or 32 bytes.
	Key []byte
	// Defaults to the standard count for the key length.
	Rounds int
	// Encodings are drawn from crypto/rand when Seed is nil.
	Seed      []byte
	Decrypt   bool
	NoReverse bool
}

// WhiteBox is safe for concurrent use: nothing is mutated after New.
type WhiteBox struct {
	fwd, back *aesref.Cipher
	reverse   bool
	// Layer j is the state after j encryption rounds.
	enc  []codec.Vector
	perm [][16]int
	seed []byte
}

func randomPositions(r io.Reader) ([16]int, error) {
	var p [16]int
	var buf [16]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return p, err
	}
	for i := range p {
		p[i] = i
	}
	for i := 15; i > 0; i-- {
		j := int(buf[i]) % (i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p, nil
}

func New(cfg Config) (*WhiteBox, error) {
	var err error
	w := &WhiteBox{reverse: !cfg.NoReverse}
	if w.fwd, err = aesref.NewCipher(cfg.Key, cfg.Rounds, !cfg.Decrypt); err != nil {
		return nil, err
	}
	if w.back, err = aesref.NewCipher(cfg.Key, cfg.Rounds, cfg.Decrypt); err != nil {
		return nil, err
	}

	w.seed = cfg.Seed
	if w.seed == nil {
		w.seed = make([]byte, 32)
		if _, err = rand.Read(w.seed); err != nil {
			return nil, fmt.Errorf("Seed generation failed: %v", err)
		}
	}
	stream := codec.Stream(w.seed)

	rounds := w.fwd.Rounds()
	w.enc = make([]codec.Vector, rounds+1)
	w.perm = make([][16]int, rounds+1)
	for j := 0; j <= rounds; j++ {
		if w.enc[j], err = codec.NewRandomVector(16, stream); err != nil {
			return nil, err
		}
		if j == 0 || j == rounds {
			for i := range w.perm[j] {
				w.perm[j][i] = i
			}
			continue
		}
		if w.perm[j], err = randomPositions(stream); err != nil {
			return nil, err
		}
	}
	dir := "encrypt"
	if cfg.Decrypt {
		dir = "decrypt"
	}
	glog.V(1).Infof("Simulated AES-%d %s white-box ready", 8*len(cfg.Key), dir)
	return w, nil
}

func (w *WhiteBox) Rounds() int {
	return w.fwd.Rounds()
}

func (w *WhiteBox) IsEncrypt() bool {
	return w.fwd.IsEncrypt()
}

func (w *WhiteBox) HasReverse() bool {
	return w.reverse
}

// Layer read by oracle round r.
func (w *WhiteBox) layerIn(r int) int {
	if w.IsEncrypt() {
		return r
	}
	return w.Rounds() - r
}

func (w *WhiteBox) layerOut(r int) int {
	if w.IsEncrypt() {
		return r + 1
	}
	return w.Rounds() - r - 1
}

func (w *WhiteBox) encodeLayer(j int, s []byte) []byte {
	out := make([]byte, 16)
	for b, q := range w.perm[j] {
		out[b] = w.enc[j][q].Encode(s[q])
	}
	return out
}

func (w *WhiteBox) decodeLayer(j int, e []byte) []byte {
	s := make([]byte, 16)
	for b, q := range w.perm[j] {
		s[q] = w.enc[j][q].Decode(e[b])
	}
	return s
}

func checkBlock(data []byte) error {
	if len(data) != 16 {
		return failure.InvalidArgument("data length (%d) must be 16", len(data))
	}
	return nil
}

func (w *WhiteBox) Apply(data []byte) ([]byte, error) {
	return w.ApplyFault(data, nil)
}

func (w *WhiteBox) ApplyReverse(data []byte) ([]byte, error) {
	if !w.reverse {
		return nil, failure.InvalidState("ApplyReverse is not available")
	}
	if err := checkBlock(data); err != nil {
		return nil, err
	}
	s := w.decodeLayer(w.layerOut(w.Rounds()-1), data)
	s = w.back.Apply(s)
	return w.encodeLayer(w.layerIn(0), s), nil
}

// ApplyRound runs oracle round r on the encoded state.
func (w *WhiteBox) ApplyRound(data []byte, r int) ([]byte, error) {
	if err := checkBlock(data); err != nil {
		return nil, err
	}
	if r < 0 || r >= w.Rounds() {
		return nil, failure.InvalidArgument("Invalid round %d", r)
	}
	s := w.decodeLayer(w.layerIn(r), data)
	return w.encodeLayer(w.layerOut(r), w.fwd.Round(s, r)), nil
}

// ApplyFault works on the decoded state and only re-encodes the faulted
// bytes, which gives the same result as oracle.FaultByRounds over ApplyRound.
func (w *WhiteBox) ApplyFault(data []byte, faults []oracle.Fault) ([]byte, error) {
	if err := checkBlock(data); err != nil {
		return nil, err
	}
	for _, f := range faults {
		if f.Round < 0 || f.Round >= w.Rounds() || f.Byte < 0 || f.Byte > 15 || f.Value == 0 {
			return nil, failure.InvalidArgument("Invalid fault %v", f)
		}
	}
	s := w.decodeLayer(w.layerIn(0), data)
	for r := 0; r < w.Rounds(); r++ {
		for _, f := range faults {
			if f.Round != r {
				continue
			}
			j := w.layerIn(r)
			q := w.perm[j][f.Byte]
			p := w.enc[j][q]
			s[q] = p.Decode(p.Encode(s[q]) ^ f.Value)
		}
		s = w.fwd.Round(s, r)
	}
	return w.encodeLayer(w.layerOut(w.Rounds()-1), s), nil
}

// Fork returns w; the tables are read-only.
func (w *WhiteBox) Fork() (oracle.WhiteBox, error) {
	return w, nil
}

// InputEncoding is the encoding applied to inputs before the AES core.
func (w *WhiteBox) InputEncoding() codec.Vector {
	return w.enc[w.layerIn(0)]
}

// OutputEncoding is the encoding applied to the AES core output.
func (w *WhiteBox) OutputEncoding() codec.Vector {
	return w.enc[w.layerOut(w.Rounds()-1)]
}

// RoundKey exposes the expanded key for tests.
func (w *WhiteBox) RoundKey(r int) []byte {
	return w.fwd.RoundKey(r)
}

func (w *WhiteBox) streamFor(label string) io.Reader {
	return codec.Stream(append(append([]byte(nil), w.seed...), label...))
}

func (w *WhiteBox) int64For(label string) int64 {
	var buf [8]byte
	io.ReadFull(w.streamFor(label), buf[:])
	return int64(binary.LittleEndian.Uint64(buf[:]))
}
