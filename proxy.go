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

// Differential fault analysis of white-box AES implementations.
package darkphoenix

import (
	"bytes"
	"crypto/rand"
	"sync"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/codec"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

// AllPositions selects every round or every byte in ClearFaultPosition.
const AllPositions = -1

const (
	// Random faults tried at the last round of an auto oracle before giving
	// up on last round detection.
	lastRoundProbes = 256
	// ChangeFaultPosition calls allowed per byte in one discovery pass.
	maxPositionTrials = 4096
	selfTestSamples   = 16
)

// Chain maps an oracle output back toward the internal state. The output
// encodings are applied in order; the linear layer is undone after each of
// them except the last one, unless reverseMC is set.
type Chain struct {
	encrypt         bool
	revertLastShift bool
	output          []codec.Vector
	reverseMC       bool
}

func (c *Chain) unmix(d []byte) []byte {
	if c.encrypt {
		return aesref.InvShiftRows(aesref.InvMixColumns(d))
	}
	return aesref.ShiftRows(aesref.MixColumns(d))
}

// Apply is an oracle.ReverseFunc.
func (c *Chain) Apply(out []byte) ([]byte, error) {
	d := out
	if c.revertLastShift {
		if c.encrypt {
			d = aesref.InvShiftRows(d)
		} else {
			d = aesref.ShiftRows(d)
		}
	}
	for i, v := range c.output {
		var err error
		if d, err = v.Encode(d); err != nil {
			return nil, err
		}
		if c.reverseMC || i < len(c.output)-1 {
			d = c.unmix(d)
		}
	}
	return d, nil
}

// Proxy adapts the attacked oracle for the attack stages: it undoes the
// known parts of the last rounds and manages fault positions of auto
// oracles.
type Proxy struct {
	wb          oracle.WhiteBox
	encrypt     bool
	rounds      int
	lastRoundMC bool

	mu           sync.Mutex
	randomInputs [][]byte

	// Auto oracles only.
	available      map[int]*[16]bool
	lastFaultRound int
	validations    int
}

// NewProxy wraps wb and detects the shape of its last round.
func NewProxy(wb oracle.WhiteBox) (*Proxy, error) {
	p := &Proxy{
		wb:             wb,
		encrypt:        wb.IsEncrypt(),
		rounds:         wb.Rounds(),
		available:      make(map[int]*[16]bool),
		lastFaultRound: AllPositions,
		validations:    1,
	}
	if err := p.checkRounds(); err != nil {
		return nil, err
	}
	if err := p.detectLastRound(); err != nil {
		return nil, err
	}
	glog.V(1).Infof("Last round has MixColumns: %v", p.lastRoundMC)
	return p, nil
}

func (p *Proxy) checkRounds() error {
	switch p.rounds {
	case 10, 12, 14:
		return nil
	}
	return failure.InvalidArgument("roundNumber (%d) must be equal to 10, 12 or 14", p.rounds)
}

func (p *Proxy) Rounds() int {
	return p.rounds
}

func (p *Proxy) IsEncrypt() bool {
	return p.encrypt
}

func (p *Proxy) HasReverse() bool {
	return p.wb.HasReverse()
}

func (p *Proxy) LastRoundHasMixColumns() bool {
	return p.lastRoundMC
}

func (p *Proxy) auto() (oracle.AutoWhiteBox, bool) {
	a, ok := p.wb.(oracle.AutoWhiteBox)
	return a, ok
}

func (p *Proxy) IsAuto() bool {
	_, ok := p.auto()
	return ok
}

// Chain returns the reverse chain for the given output encodings, starting
// with the last ShiftRows undone.
func (p *Proxy) Chain(output []codec.Vector, reverseMC bool) *Chain {
	return &Chain{encrypt: p.encrypt, revertLastShift: true, output: output, reverseMC: reverseMC}
}

// Apply calls the oracle and undoes the last ShiftRows.
func (p *Proxy) Apply(data []byte) ([]byte, error) {
	return p.ApplyChain(data, p.Chain(nil, false))
}

// ApplyChain calls the oracle and passes the output through c. A nil c
// returns the raw output.
func (p *Proxy) ApplyChain(data []byte, c *Chain) ([]byte, error) {
	var err error
	var out []byte
	if out, err = p.wb.Apply(data); err != nil {
		return nil, err
	}
	if c == nil {
		return out, nil
	}
	return c.Apply(out)
}

// ApplyFault is ApplyChain with faults injected.
func (p *Proxy) ApplyFault(data []byte, c *Chain, faults ...oracle.Fault) ([]byte, error) {
	for _, f := range faults {
		p.lastFaultRound = f.Round
	}
	var err error
	var out []byte
	if out, err = p.wb.ApplyFault(data, faults); err != nil {
		return nil, err
	}
	if glog.V(2) {
		glog.Infof("Fault %v: %x", faults, out)
	}
	if c == nil {
		return out, nil
	}
	return c.Apply(out)
}

// ApplyReverse redoes the last ShiftRows before calling the reverse oracle,
// so ApplyReverse(Apply(x)) == x.
func (p *Proxy) ApplyReverse(data []byte) ([]byte, error) {
	if p.encrypt {
		data = aesref.ShiftRows(data)
	} else {
		data = aesref.InvShiftRows(data)
	}
	return p.wb.ApplyReverse(data)
}

// RandomInput returns the n-th random input. Oracles implementing
// oracle.RandomInputSource pick them themselves.
func (p *Proxy) RandomInput(n int) ([]byte, error) {
	if src, ok := p.wb.(oracle.RandomInputSource); ok {
		return src.RandomInput(n), nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.randomInputs) <= n {
		buf, err := randomBlock()
		if err != nil {
			return nil, err
		}
		p.randomInputs = append(p.randomInputs, buf)
	}
	return append([]byte(nil), p.randomInputs[n]...), nil
}

// SelfTest checks the round count and, when available, that ApplyReverse
// inverts Apply.
func (p *Proxy) SelfTest() error {
	if err := p.checkRounds(); err != nil {
		return err
	}
	if !p.wb.HasReverse() {
		return nil
	}
	for i := 0; i < selfTestSamples; i++ {
		var err error
		var data, out, back []byte
		if data, err = randomBlock(); err != nil {
			return err
		}
		if out, err = p.Apply(data); err != nil {
			return err
		}
		if back, err = p.ApplyReverse(out); err != nil {
			return err
		}
		if !bytes.Equal(back, data) {
			return failure.WhiteBox("applyReverse must be the inverse of apply if available")
		}
	}
	return nil
}

// Fork returns a proxy safe to use from another goroutine. The oracle is
// forked when it implements oracle.Forker and shared otherwise.
func (p *Proxy) Fork() (*Proxy, error) {
	wb := p.wb
	if f, ok := p.wb.(oracle.Forker); ok {
		var err error
		if wb, err = f.Fork(); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	q := &Proxy{
		wb:             wb,
		encrypt:        p.encrypt,
		rounds:         p.rounds,
		lastRoundMC:    p.lastRoundMC,
		randomInputs:   p.randomInputs,
		available:      make(map[int]*[16]bool, len(p.available)),
		lastFaultRound: AllPositions,
		validations:    p.validations,
	}
	for r, a := range p.available {
		c := *a
		q.available[r] = &c
	}
	return q, nil
}

func diffPositions(a, b []byte) []int {
	var pos []int
	for i := range a {
		if a[i] != b[i] {
			pos = append(pos, i)
		}
	}
	return pos
}

func (p *Proxy) detectLastRound() error {
	if info, ok := p.wb.(oracle.LastRoundInfo); ok {
		p.lastRoundMC = info.LastRoundHasMixColumns()
		return nil
	}
	if a, ok := p.auto(); ok {
		return p.probeLastRound(a)
	}

	var err error
	var ref, out []byte
	data := make([]byte, 16)
	round := p.rounds - 1
	if ref, err = p.Apply(data); err != nil {
		return err
	}
	if err = p.PrepareFaultPosition(round, nil, false); err != nil {
		return err
	}
	if out, err = p.ApplyFault(data, p.Chain(nil, false), oracle.Fault{Round: round, Byte: 15, Value: 1}); err != nil {
		return err
	}
	switch len(diffPositions(ref, out)) {
	case 1:
		p.lastRoundMC = false
	case 4:
		p.lastRoundMC = true
	default:
		return failure.FaultPosition(round, 15)
	}
	return nil
}

// An auto oracle binds coordinates to random locations, so a single probe
// cannot tell the last round from an earlier one. A fault in the last round
// changes one output byte when it has no MixColumns, and no earlier round can
// do that; four bytes is the smallest footprint otherwise.
func (p *Proxy) probeLastRound(a oracle.AutoWhiteBox) error {
	var err error
	var ref, out []byte
	data := make([]byte, 16)
	round := p.rounds - 1
	if ref, err = p.Apply(data); err != nil {
		return err
	}
	seen := make(map[int]bool)
	for i := 0; i < lastRoundProbes && !seen[1]; i++ {
		if err = a.ChangeFaultPosition(round, 15); err != nil {
			return err
		}
		if out, err = p.ApplyFault(data, p.Chain(nil, false), oracle.Fault{Round: round, Byte: 15, Value: 1}); err != nil {
			return err
		}
		seen[len(diffPositions(ref, out))] = true
	}
	if err = a.RemoveFaultPosition(round, 15); err != nil {
		return err
	}
	switch {
	case seen[1]:
		p.lastRoundMC = false
	case seen[4]:
		p.lastRoundMC = true
	default:
		return failure.FaultPosition(round, 15)
	}
	return nil
}

// PrepareFaultPosition must be called before faulting round. Dynamic oracles
// get the reverse chains to pick their coordinates; for auto oracles the
// positions of round are discovered and validated.
func (p *Proxy) PrepareFaultPosition(round int, output []codec.Vector, reverseMC bool) error {
	reverse := p.Chain(output, reverseMC)
	var reverse2 *Chain
	switch {
	case output == nil:
	case reverseMC:
		reverse2 = p.Chain(output, false)
	case len(output) > 1:
		reverse2 = p.Chain(output[:len(output)-1], reverseMC)
	}
	var fn2 oracle.ReverseFunc
	if reverse2 != nil {
		fn2 = reverse2.Apply
	}

	if d, ok := p.wb.(oracle.DynamicWhiteBox); ok {
		if err := d.PrepareFaultPosition(round, reverse.Apply, fn2); err != nil {
			return err
		}
	}
	if a, ok := p.auto(); ok {
		return p.selectFaultPositions(a, round, reverse.Apply, fn2)
	}
	return nil
}

func (p *Proxy) checkPosition(round, b int) error {
	if round != AllPositions && (round < 0 || round >= p.rounds) {
		return failure.InvalidArgument("Unsupported fround (%d)", round)
	}
	if b != AllPositions && (b < 0 || b > 15) {
		return failure.InvalidArgument("Unsupported fbytes (%d)", b)
	}
	return nil
}

func (p *Proxy) selectFaultPositions(a oracle.AutoWhiteBox, round int, reverse, reverse2 oracle.ReverseFunc) error {
	if err := p.checkPosition(round, 0); err != nil {
		return err
	}
	p.lastFaultRound = round
	avail, ok := p.available[round]
	if !ok {
		avail = &[16]bool{}
		p.available[round] = avail
	}
	known := 0
	for _, ok := range avail {
		if ok {
			known++
		}
	}
	if known == 16 {
		return nil
	}
	glog.V(1).Infof("Searching fault positions for round %d (%d known)", round, known)

	var err error
	tested := 0
	validations := 0
	for first := true; first || validations < p.validations; first = false {
		var input []byte
		if input, err = randomBlock(); err != nil {
			return err
		}
		var v *Validator
		if v, err = NewValidator(p.wb, round, reverse, reverse2, input); err != nil {
			return err
		}

		committed := 0
		for b := range avail {
			if !avail[b] {
				continue
			}
			var accepted bool
			if accepted, err = v.TestAndCommit(b); err != nil {
				return err
			}
			if accepted {
				committed++
				continue
			}
			if err = a.RemoveFaultPosition(round, b); err != nil {
				return err
			}
			avail[b] = false
		}
		if committed == 16 {
			if !v.AllPositionsFound() {
				return failure.Unexpected("Missing position")
			}
			validations++
			continue
		}
		validations = 0

		for b := range avail {
			if avail[b] {
				continue
			}
			accepted := false
			for trial := 0; !accepted; trial++ {
				if trial == maxPositionTrials {
					return failure.FaultPosition(round, b)
				}
				if err = a.ChangeFaultPosition(round, b); err != nil {
					return err
				}
				if accepted, err = v.TestAndCommit(b); err != nil {
					return err
				}
				tested++
				if !accepted {
					if err = a.RemoveFaultPosition(round, b); err != nil {
						return err
					}
				}
			}
			avail[b] = true
		}
		if !v.AllPositionsFound() {
			return failure.Unexpected("Missing position")
		}
		if glog.V(2) {
			for b := range avail {
				col, _ := v.Column(b)
				glog.Infof("Round %d position %d in column %d", round, b, col)
			}
		}
	}
	glog.V(1).Infof("Fault positions for round %d found after %d trials", round, tested)
	return nil
}

// HandleError forgets the fault positions err points at, so the next
// PrepareFaultPosition discovers them again. A fault position error names
// its round and optionally bytes; any other error drops the last faulted
// round, or every position when no fault was injected yet.
func (p *Proxy) HandleError(err error) error {
	if !p.IsAuto() {
		return failure.Unexpected("Cannot use HandleError without an auto white-box")
	}
	if e, ok := failure.AsFaultPosition(err); ok {
		if len(e.Bytes) == 0 {
			return p.ClearFaultPosition(e.Round, AllPositions)
		}
		for _, b := range e.Bytes {
			if err := p.ClearFaultPosition(e.Round, b); err != nil {
				return err
			}
		}
		return nil
	}
	round := p.lastFaultRound
	p.lastFaultRound = AllPositions
	return p.ClearFaultPosition(round, AllPositions)
}

// ClearFaultPosition drops known positions: every position when round is
// AllPositions, the whole round when b is AllPositions, otherwise one byte.
func (p *Proxy) ClearFaultPosition(round, b int) error {
	a, ok := p.auto()
	if !ok {
		return failure.Unexpected("Cannot use ClearFaultPosition without an auto white-box")
	}
	if err := p.checkPosition(round, b); err != nil {
		return err
	}

	drop := func(r int, avail *[16]bool, only int) error {
		for i, ok := range avail {
			if !ok || (only != AllPositions && i != only) {
				continue
			}
			if err := a.RemoveFaultPosition(r, i); err != nil {
				return err
			}
			avail[i] = false
		}
		return nil
	}

	if round == AllPositions {
		for r, avail := range p.available {
			if err := drop(r, avail, AllPositions); err != nil {
				return err
			}
		}
		p.available = make(map[int]*[16]bool)
		return nil
	}
	avail, ok := p.available[round]
	if !ok {
		return nil
	}
	if err := drop(round, avail, b); err != nil {
		return err
	}
	if b == AllPositions {
		delete(p.available, round)
	}
	glog.V(1).Infof("Cleared fault positions of round %d (byte %d)", round, b)
	return nil
}

func randomBlock() ([]byte, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
