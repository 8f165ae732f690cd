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

package simulator

import (
	"math/rand"
	"sync"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

type coord struct {
	round, b int
}

var (
	faultCountWeights  = []int{40, 40, 20}
	roundOffsets       = []int{-2, -1, 0, 1, 2}
	roundOffsetWeights = []int{5, 25, 40, 25, 5}
)

func weighted(rng *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := rng.Intn(total)
	for i, w := range weights {
		if n < w {
			return i
		}
		n -= w
	}
	return len(weights) - 1
}

// Auto binds fault coordinates to random internal locations. With
// MultiFault a coordinate may hit up to three locations spread over
// neighbouring rounds, which the attack has to detect and reject.
type Auto struct {
	*WhiteBox
	MultiFault bool

	mu        sync.Mutex
	rng       *rand.Rand
	positions map[coord][]coord
	changes   int
}

func NewAuto(cfg Config, multiFault bool) (*Auto, error) {
	var err error
	var w *WhiteBox
	if w, err = New(cfg); err != nil {
		return nil, err
	}
	return &Auto{
		WhiteBox:   w,
		MultiFault: multiFault,
		rng:        rand.New(rand.NewSource(w.int64For("auto"))),
		positions:  make(map[coord][]coord),
	}, nil
}

func (a *Auto) randomPosition() []coord {
	first := coord{a.rng.Intn(a.Rounds()), a.rng.Intn(16)}
	locs := []coord{first}
	if !a.MultiFault {
		return locs
	}
	n := 1 + weighted(a.rng, faultCountWeights)
	for len(locs) < n {
		c := coord{first.round + roundOffsets[weighted(a.rng, roundOffsetWeights)], a.rng.Intn(16)}
		if c.round < 0 || c.round >= a.Rounds() {
			continue
		}
		dup := false
		for _, l := range locs {
			dup = dup || l == c
		}
		if !dup {
			locs = append(locs, c)
		}
	}
	return locs
}

func (a *Auto) ChangeFaultPosition(round, b int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions[coord{round, b}] = a.randomPosition()
	a.changes++
	return nil
}

func (a *Auto) RemoveFaultPosition(round, b int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.positions, coord{round, b})
	return nil
}

// Changes counts ChangeFaultPosition calls.
func (a *Auto) Changes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changes
}

// Bind forces (round, b) onto internal location (intRound, intByte).
func (a *Auto) Bind(round, b, intRound, intByte int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions[coord{round, b}] = []coord{{intRound, intByte}}
}

func (a *Auto) ApplyFault(data []byte, faults []oracle.Fault) ([]byte, error) {
	a.mu.Lock()
	var mapped []oracle.Fault
	for _, f := range faults {
		locs, ok := a.positions[coord{f.Round, f.Byte}]
		if !ok {
			a.mu.Unlock()
			return nil, failure.InvalidArgument("fault position for round %d byte %d is missing", f.Round, f.Byte)
		}
		for _, l := range locs {
			mapped = append(mapped, oracle.Fault{Round: l.round, Byte: l.b, Value: f.Value})
		}
	}
	a.mu.Unlock()
	return a.WhiteBox.ApplyFault(data, mapped)
}

// Fork copies the current bindings.
func (a *Auto) Fork() (oracle.WhiteBox, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := &Auto{
		WhiteBox:   a.WhiteBox,
		MultiFault: a.MultiFault,
		rng:        rand.New(rand.NewSource(a.rng.Int63())),
		positions:  make(map[coord][]coord, len(a.positions)),
	}
	for k, v := range a.positions {
		f.positions[k] = v
	}
	return f, nil
}

// Dynamic picks its own fault coordinates when asked to prepare a round.
type Dynamic struct {
	*WhiteBox

	mu       sync.Mutex
	rng      *rand.Rand
	prepared map[int][16]int
}

func NewDynamic(cfg Config) (*Dynamic, error) {
	var err error
	var w *WhiteBox
	if w, err = New(cfg); err != nil {
		return nil, err
	}
	return &Dynamic{
		WhiteBox: w,
		rng:      rand.New(rand.NewSource(w.int64For("dynamic"))),
		prepared: make(map[int][16]int),
	}, nil
}

// PrepareFaultPosition shuffles the coordinates of round once and checks
// with reverse that a fault at the first coordinate spreads over one column.
func (d *Dynamic) PrepareFaultPosition(round int, reverse, reverse2 oracle.ReverseFunc) error {
	d.mu.Lock()
	if _, ok := d.prepared[round]; ok {
		d.mu.Unlock()
		return nil
	}
	var p [16]int
	for i, v := range d.rng.Perm(16) {
		p[i] = v
	}
	d.prepared[round] = p
	d.mu.Unlock()

	var err error
	var ref, out, refR, outR []byte
	in := make([]byte, 16)
	if ref, err = d.WhiteBox.Apply(in); err != nil {
		return err
	}
	if out, err = d.ApplyFault(in, []oracle.Fault{{Round: round, Byte: 0, Value: 1}}); err != nil {
		return err
	}
	if refR, err = reverse(ref); err != nil {
		return err
	}
	if outR, err = reverse(out); err != nil {
		return err
	}
	diff := 0
	for i := range refR {
		if refR[i] != outR[i] {
			diff++
		}
	}
	glog.V(1).Infof("Dynamic round %d prepared: %d bytes reached (second reverse %v)", round, diff, reverse2 != nil)
	return nil
}

func (d *Dynamic) ApplyFault(data []byte, faults []oracle.Fault) ([]byte, error) {
	d.mu.Lock()
	mapped := make([]oracle.Fault, len(faults))
	for i, f := range faults {
		p, ok := d.prepared[f.Round]
		if !ok || f.Byte < 0 || f.Byte > 15 {
			d.mu.Unlock()
			return nil, failure.InvalidState("round %d was not prepared", f.Round)
		}
		mapped[i] = oracle.Fault{Round: f.Round, Byte: p[f.Byte], Value: f.Value}
	}
	d.mu.Unlock()
	return d.WhiteBox.ApplyFault(data, mapped)
}

// Fork copies the prepared rounds.
func (d *Dynamic) Fork() (oracle.WhiteBox, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := &Dynamic{
		WhiteBox: d.WhiteBox,
		rng:      rand.New(rand.NewSource(d.rng.Int63())),
		prepared: make(map[int][16]int, len(d.prepared)),
	}
	for k, v := range d.prepared {
		f.prepared[k] = v
	}
	return f, nil
}
