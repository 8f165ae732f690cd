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
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/codec"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
	"github.com/SideChannelMarvels/DarkPhoenix/resolver"
)

// State is the last completed stage.
type State int

const (
	StateInit State = iota
	StateColumnTables
	StateByteEncodings
	StateLinearLayer
	StateAffine
	StateRoundKeys
)

var stateNames = []string{"init", "column-tables", "byte-encodings", "linear-layer", "affine", "round-keys"}

func (s State) String() string {
	if s < StateInit || s > StateRoundKeys {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

type Config struct {
	// Goroutines used by the brute force of Stages 1 and 2; 0 runs them on
	// the calling goroutine.
	Workers int
	// Keep two sibling bytes fixed in Stage 1 instead of one.
	DoubleSibling bool
	// Recover every round key Stage 5 can reach instead of the minimum.
	AllRounds bool
	// Retries of RunAuto after a domain error; negative means unlimited.
	Retry int
	// Snapshot written after each stage and restored by Run when present.
	SnapshotPath string
	// Defaults to resolver.NewLocal().
	Resolver resolver.Resolver
}

func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU(), Retry: -1}
}

// Attack drives the stages against one oracle and keeps their results.
type Attack struct {
	cfg   Config
	proxy *Proxy
	state State

	input      []byte
	tables     [][][]byte
	siblings   [][]int
	gtildeInv  codec.Vector
	gbarInv    codec.Vector
	roundShift []int
	c          []byte
	lambda     []byte
	beta       []byte
	keyParts   [][]byte
}

func NewAttack(wb oracle.WhiteBox, cfg Config) (*Attack, error) {
	var err error
	a := &Attack{cfg: cfg}
	if a.cfg.Resolver == nil {
		a.cfg.Resolver = resolver.NewLocal()
	}
	if a.proxy, err = NewProxy(wb); err != nil {
		return nil, err
	}
	if err = a.proxy.SelfTest(); err != nil {
		return nil, err
	}
	if a.input, err = a.proxy.RandomInput(0); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Attack) State() State {
	return a.state
}

func (a *Attack) Proxy() *Proxy {
	return a.proxy
}

// Snapshot returns the persisted form of the current state.
func (a *Attack) Snapshot() *Snapshot {
	s := &Snapshot{State: a.state, ReferenceInput: a.input}
	if a.state >= StateColumnTables {
		s.ColumnTables = make([][]HexBytes, len(a.tables))
		for b, t := range a.tables {
			s.ColumnTables[b] = make([]HexBytes, len(t))
			for x, d := range t {
				s.ColumnTables[b][x] = d
			}
		}
		s.SiblingSpecs = a.siblings
	}
	if a.state >= StateByteEncodings {
		s.GtildeInvTable = a.gtildeInv.Tables()
	}
	if a.state >= StateLinearLayer {
		s.GbarInvTable = a.gbarInv.Tables()
		s.RoundShift = a.roundShift
		s.ColumnCoefficients = a.c
	}
	if a.state >= StateAffine {
		s.LambdaPerByte = a.lambda
		s.BetaPerByte = a.beta
	}
	for _, k := range a.keyParts {
		s.RoundKeyParts = append(s.RoundKeyParts, k)
	}
	return s
}

func vectorOf(tables [][]int) (codec.Vector, error) {
	if len(tables) != 16 {
		return nil, failure.InvalidState("expected 16 tables, got %d", len(tables))
	}
	v, err := codec.FromTables(tables)
	if err != nil {
		return nil, failure.InvalidState("invalid table: %v", err)
	}
	return v, nil
}

// Column coefficients and lambdas are invertible, so never zero.
func hasZero(b []byte) bool {
	return bytes.IndexByte(b, 0) >= 0
}

// Restore replaces the current state with s.
func (a *Attack) Restore(s *Snapshot) error {
	if s.State < StateInit || s.State > StateRoundKeys {
		return failure.InvalidState("Invalid snapshot state %d", s.State)
	}
	if len(s.ReferenceInput) != 16 {
		return failure.InvalidState("Invalid reference input %x", []byte(s.ReferenceInput))
	}
	r := &Attack{cfg: a.cfg, proxy: a.proxy, state: s.State, input: s.ReferenceInput}
	var err error
	if s.State >= StateColumnTables {
		r.tables = make([][][]byte, len(s.ColumnTables))
		for b, t := range s.ColumnTables {
			r.tables[b] = make([][]byte, len(t))
			for x, d := range t {
				r.tables[b][x] = d
			}
		}
		r.siblings = s.SiblingSpecs
		if err = checkStage1(r.input, r.tables, r.siblings); err != nil {
			return err
		}
	}
	if s.State >= StateByteEncodings {
		if r.gtildeInv, err = vectorOf(s.GtildeInvTable); err != nil {
			return err
		}
	}
	if s.State >= StateLinearLayer {
		if r.gbarInv, err = vectorOf(s.GbarInvTable); err != nil {
			return err
		}
		if len(s.RoundShift) != 16 || len(s.ColumnCoefficients) != 16 || hasZero(s.ColumnCoefficients) {
			return failure.InvalidState("Invalid Step3 state")
		}
		r.roundShift = s.RoundShift
		r.c = s.ColumnCoefficients
	}
	if s.State >= StateAffine {
		if len(s.LambdaPerByte) != 16 || len(s.BetaPerByte) != 16 || hasZero(s.LambdaPerByte) {
			return failure.InvalidState("Invalid Step4 state")
		}
		r.lambda = s.LambdaPerByte
		r.beta = s.BetaPerByte
	}
	if s.State >= StateRoundKeys {
		if len(s.RoundKeyParts) == 0 {
			return failure.InvalidState("Invalid Step5 state")
		}
		for _, k := range s.RoundKeyParts {
			if len(k) != 16 {
				return failure.InvalidState("Invalid Step5 state")
			}
			r.keyParts = append(r.keyParts, k)
		}
	}
	*a = *r
	glog.Infof("Restored attack at state %d", a.state)
	return nil
}

func (a *Attack) save() error {
	if a.cfg.SnapshotPath == "" {
		return nil
	}
	if err := a.Snapshot().Save(a.cfg.SnapshotPath); err != nil {
		return err
	}
	glog.Infof("Snapshot saved to %s (state %d)", a.cfg.SnapshotPath, a.state)
	return nil
}

// stage runs fn when the attack is exactly one stage behind n. Stages
// already done are skipped.
func (a *Attack) stage(n State, fn func() error) error {
	switch {
	case a.state >= n:
		return nil
	case a.state < n-1:
		return failure.InvalidState("Cannot perform stage%d before stage%d", n, n-1)
	}
	if err := fn(); err != nil {
		return err
	}
	a.state = n
	return a.save()
}

func (a *Attack) Stage1() error {
	return a.stage(StateColumnTables, func() error {
		var err error
		a.tables, a.siblings, err = Stage1(a.proxy, a.input, a.cfg.Workers, a.cfg.DoubleSibling)
		return err
	})
}

func (a *Attack) Stage2() error {
	return a.stage(StateByteEncodings, func() error {
		var err error
		if err = VerifyStage1(a.proxy, a.input, a.tables, a.siblings); err != nil {
			return err
		}
		a.gtildeInv, err = Stage2(a.proxy, a.tables, a.siblings, a.cfg.Workers)
		return err
	})
}

func (a *Attack) Stage3() error {
	return a.stage(StateLinearLayer, func() error {
		var err error
		a.gbarInv, a.roundShift, a.c, err = Stage3(a.proxy, a.cfg.Resolver, a.gtildeInv, a.input)
		return err
	})
}

func (a *Attack) Stage4() error {
	return a.stage(StateAffine, func() error {
		var err error
		a.lambda, a.beta, err = Stage4(a.proxy, a.gtildeInv, a.gbarInv, a.c, a.input)
		return err
	})
}

func (a *Attack) Stage5() error {
	return a.stage(StateRoundKeys, func() error {
		var err error
		a.keyParts, err = Stage5(a.proxy, a.gtildeInv, a.gbarInv, a.c, a.lambda, a.beta, a.input, a.cfg.AllRounds)
		return err
	})
}

// Run resumes from the snapshot file when it exists, then runs the
// remaining stages.
func (a *Attack) Run() error {
	if a.cfg.SnapshotPath != "" {
		if _, err := os.Stat(a.cfg.SnapshotPath); err == nil {
			var s *Snapshot
			if s, err = LoadSnapshot(a.cfg.SnapshotPath); err != nil {
				return err
			}
			if err = a.Restore(s); err != nil {
				return err
			}
		}
	}
	for _, stage := range []func() error{a.Stage1, a.Stage2, a.Stage3, a.Stage4, a.Stage5} {
		if err := stage(); err != nil {
			return err
		}
	}
	return nil
}

// RunAuto is Run, retried after domain errors when the oracle picks its own
// fault positions. The positions blamed by the error are forgotten before
// each retry.
func (a *Attack) RunAuto() error {
	if !a.proxy.IsAuto() {
		return a.Run()
	}
	for run := 0; ; run++ {
		err := a.Run()
		if err == nil || !failure.IsDomain(err) || run == a.cfg.Retry {
			return err
		}
		glog.Warningf("Run %d failed: %v, retrying", run+1, err)
		if err = a.proxy.HandleError(err); err != nil {
			return err
		}
	}
}

// NoOffset keeps the default schedule index in Key.
const NoOffset = -1

// RoundKey is a recovered round key and its index in the key schedule.
type RoundKey struct {
	Index int
	Key   []byte
}

func (a *Attack) RoundKeys() []RoundKey {
	keys := make([]RoundKey, len(a.keyParts))
	for i, k := range a.keyParts {
		index := i + 2
		if a.proxy.IsEncrypt() {
			index = a.proxy.Rounds() - 2 - i
		}
		keys[i] = RoundKey{Index: index, Key: k}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Index < keys[j].Index
	})
	return keys
}

func (a *Attack) PrintKey(w io.Writer) error {
	for _, k := range a.RoundKeys() {
		if _, err := fmt.Fprintf(w, "k%02d: %x\n", k.Index, k.Key); err != nil {
			return err
		}
	}
	return nil
}

// Key rebuilds the cipher key from the round keys. keyLen 0 selects the
// standard length for the round count; an offset other than NoOffset sets
// the schedule index of the first recovered round key.
func (a *Attack) Key(keyLen, offset int) ([]byte, error) {
	if a.state < StateRoundKeys {
		return nil, failure.InvalidState("Cannot compute the key before stage5")
	}
	if keyLen == 0 {
		keyLen = aesref.DefaultKeyLen(a.proxy.Rounds())
	}
	if keyLen != 16 && keyLen != 24 && keyLen != 32 {
		return nil, failure.InvalidArgument("Invalid key length %d", keyLen)
	}

	var buf []byte
	first := 2
	if a.proxy.IsEncrypt() {
		first = a.proxy.Rounds() - 1 - len(a.keyParts)
		for i := len(a.keyParts) - 1; i >= 0; i-- {
			buf = append(buf, a.keyParts[i]...)
		}
	} else {
		for _, k := range a.keyParts {
			buf = append(buf, k...)
		}
	}
	if offset != NoOffset {
		first = offset
	}
	n := len(buf) / keyLen
	if n == 0 {
		return nil, failure.InvalidState("Not enough round keys for a %d bytes key", keyLen)
	}

	var key []byte
	for index := 0; index < n; index++ {
		k, err := aesref.RevertKey(buf[index*16:index*16+keyLen], index+first)
		if err != nil {
			return nil, err
		}
		if key != nil && !bytes.Equal(k, key) {
			return nil, failure.Unexpected("Round key doesn't provide the same AES Key")
		}
		key = k
	}
	return key, nil
}

// ExternalEncoding returns the input and output encodings around AES.
func (a *Attack) ExternalEncoding() (codec.Vector, codec.Vector, error) {
	key, err := a.Key(0, NoOffset)
	if err != nil {
		return nil, nil, err
	}
	return ExternalEncodings(a.proxy, key, a.gtildeInv, a.gbarInv, a.c, a.lambda, a.beta)
}
