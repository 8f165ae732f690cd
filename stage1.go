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
	"encoding/binary"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
)

// Stage 1 builds, for each state byte b, 256 inputs such that input x makes
// output byte b equal to x while the sibling bytes of b keep their reference
// value. Without a reverse oracle the inputs are found by brute force: each
// column is split into two row pairs in three ways, and an output matching
// the reference on one pair fills the tables of the other pair.

const (
	tableCells = 16 * 256

	pollInterval = 100 * time.Millisecond
	// Poll ticks per throughput report.
	reportTicks      = 50
	singleReportMask = 1<<16 - 1
	joinTimeout      = time.Second
)

var rowSplits = [3][4]int{
	{0, 1, 2, 3},
	{0, 2, 3, 1},
	{0, 3, 1, 2},
}

// 128-bit big-endian input counter.
type counter struct {
	hi, lo uint64
}

func counterAt(v *big.Int) counter {
	var buf [16]byte
	v.FillBytes(buf[:])
	return counter{binary.BigEndian.Uint64(buf[:8]), binary.BigEndian.Uint64(buf[8:])}
}

func (c *counter) next() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], c.hi)
	binary.BigEndian.PutUint64(buf[8:], c.lo)
	c.lo++
	if c.lo == 0 {
		c.hi++
	}
	return buf
}

type columnSearch struct {
	ref    []byte
	double bool

	mu sync.Mutex
	// [byte][split][value] -> input
	cells [16][3][256][]byte
	// Set once runWorkers returns; late workers leave cells untouched.
	halted bool
}

func newColumnSearch(input, ref []byte, double bool) *columnSearch {
	s := &columnSearch{ref: ref, double: double}
	for b := range s.cells {
		for split := range s.cells[b] {
			s.cells[b][split][ref[b]] = input
		}
	}
	return s
}

func (s *columnSearch) fill(b, split int, data, value []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted || s.cells[b][split][value[b]] != nil {
		return false
	}
	s.cells[b][split][value[b]] = data
	return true
}

// observe records data if its output value matches the reference on a row
// pair, and reports whether a new cell was filled.
func (s *columnSearch) observe(data, value []byte) bool {
	updated := false
	for c := 0; c < 16; c += 4 {
		for split, rows := range rowSplits {
			a1, a2, b1, b2 := c+rows[0], c+rows[1], c+rows[2], c+rows[3]
			same := func(b int) bool {
				return value[b] == s.ref[b]
			}
			fill := func(b int) {
				if s.fill(b, split, data, value) {
					updated = true
				}
			}
			if s.double {
				if same(a1) && same(a2) {
					fill(b1)
					fill(b2)
				}
				if same(b1) && same(b2) {
					fill(a1)
					fill(a2)
				}
				continue
			}
			if same(a1) {
				fill(b1)
			}
			if same(a2) {
				fill(b2)
			}
			if same(b1) {
				fill(a1)
			}
			if same(b2) {
				fill(a2)
			}
		}
	}
	return updated
}

// present counts, per byte, the cells of its most complete split.
func (s *columnSearch) present() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for b := range s.cells {
		best := 0
		for split := range s.cells[b] {
			n := 0
			for _, d := range s.cells[b][split] {
				if d != nil {
					n++
				}
			}
			if n > best {
				best = n
			}
		}
		total += best
	}
	return total
}

func (s *columnSearch) result() ([][][]byte, [][]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tables := make([][][]byte, 16)
	siblings := make([][]int, 16)
	for b := range s.cells {
		c, row := b/4*4, b%4
		for split, rows := range rowSplits {
			complete := true
			for _, d := range s.cells[b][split] {
				complete = complete && d != nil
			}
			if !complete {
				continue
			}
			tables[b] = append([][]byte(nil), s.cells[b][split][:]...)
			k := 0
			for rows[k] != row {
				k++
			}
			if s.double {
				// The pair not holding row.
				other := 2 - k/2*2
				siblings[b] = []int{c + rows[other], c + rows[other+1]}
			} else {
				siblings[b] = []int{c + rows[(k+2)%4]}
			}
			break
		}
		if tables[b] == nil {
			return nil, nil, failure.Unexpected("Incomplete computation for column %d row %d", b/4, row)
		}
	}
	return tables, siblings, nil
}

func (s *columnSearch) runSingle(p *Proxy) error {
	var c counter
	present := s.present()
	for calls := 1; present != tableCells; calls++ {
		data := c.next()
		value, err := p.Apply(data)
		if err != nil {
			return err
		}
		if s.observe(data, value) {
			n := s.present()
			if n < present {
				return failure.Unexpected("Lost a solution")
			}
			present = n
		}
		if calls&singleReportMask == 0 {
			glog.V(1).Infof("Stage 1: %d/%d cells after %d calls", present, tableCells, calls)
		}
	}
	return nil
}

func (s *columnSearch) worker(p *Proxy, c counter, stop <-chan struct{}, calls *uint64) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		data := c.next()
		value, err := p.Apply(data)
		if err != nil {
			return err
		}
		s.observe(data, value)
		atomic.AddUint64(calls, 1)
	}
}

// runWorkers splits the input space in equal ranges, one per worker, and
// polls the shared tables until they are complete.
func (s *columnSearch) runWorkers(p *Proxy, workers int) error {
	stop := make(chan struct{})
	errc := make(chan error, workers)
	var wg sync.WaitGroup
	var calls uint64

	// A worker blocked in Apply cannot be interrupted; remote oracles bound
	// it with their read timeout.
	defer func() {
		close(stop)
		s.mu.Lock()
		s.halted = true
		s.mu.Unlock()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(joinTimeout):
			glog.Warningf("Stage 1 workers did not stop within %v", joinTimeout)
		}
	}()

	step := new(big.Int).Lsh(big.NewInt(1), 128)
	step.Div(step, big.NewInt(int64(workers)))
	for i := 0; i < workers; i++ {
		q, err := p.Fork()
		if err != nil {
			return err
		}
		start := counterAt(new(big.Int).Mul(step, big.NewInt(int64(i))))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.worker(q, start, stop, &calls); err != nil {
				errc <- err
			}
		}()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	present := s.present()
	var rates []float64
	var total uint64
	for present != tableCells {
		select {
		case err := <-errc:
			return err
		case <-ticker.C:
		}
		n := atomic.SwapUint64(&calls, 0)
		total += n
		rates = append(rates, float64(n)/pollInterval.Seconds())
		next := s.present()
		if next < present {
			return failure.Unexpected("Lost a solution")
		}
		present = next
		if len(rates) == reportTicks {
			mean, std := stat.MeanStdDev(rates, nil)
			glog.V(1).Infof("Stage 1: %d/%d cells after %d calls (%.0f ± %.0f calls/s)", present, tableCells, total, mean, std)
			rates = rates[:0]
		}
	}
	return nil
}

func stage1Reverse(p *Proxy, input []byte) ([][][]byte, [][]int, error) {
	var err error
	var ref []byte
	if ref, err = p.Apply(input); err != nil {
		return nil, nil, err
	}
	tables := make([][][]byte, 16)
	siblings := make([][]int, 16)
	for b := range tables {
		tables[b] = make([][]byte, 256)
		tables[b][ref[b]] = input
		c := b / 4 * 4
		if b%4 < 2 {
			siblings[b] = []int{c + 2, c + 3}
		} else {
			siblings[b] = []int{c, c + 1}
		}
	}
	for i := 1; i < 256; i++ {
		low := make([]byte, 16)
		high := make([]byte, 16)
		for b := range low {
			if b%4 < 2 {
				low[b] = byte(i)
			} else {
				high[b] = byte(i)
			}
		}
		var data1, data2 []byte
		if data1, err = p.ApplyReverse(aesref.Xor(ref, low)); err != nil {
			return nil, nil, err
		}
		if data2, err = p.ApplyReverse(aesref.Xor(ref, high)); err != nil {
			return nil, nil, err
		}
		for b := range tables {
			if b%4 < 2 {
				tables[b][ref[b]^byte(i)] = data1
			} else {
				tables[b][ref[b]^byte(i)] = data2
			}
		}
	}
	return tables, siblings, nil
}

// Stage1 returns the column tables and the sibling bytes of each byte. The
// reverse oracle is used when available; otherwise workers goroutines brute
// force the tables, or the calling goroutine alone when workers < 1. With
// double, two siblings are kept fixed instead of one.
func Stage1(p *Proxy, input []byte, workers int, double bool) ([][][]byte, [][]int, error) {
	if len(input) != 16 {
		return nil, nil, failure.InvalidArgument("reference input length (%d) must be 16", len(input))
	}
	if p.HasReverse() {
		glog.Infof("Stage 1 using the reverse oracle")
		return stage1Reverse(p, input)
	}

	ref, err := p.Apply(input)
	if err != nil {
		return nil, nil, err
	}
	s := newColumnSearch(input, ref, double)
	if workers < 1 {
		glog.Infof("Stage 1 brute force (double sibling: %v)", double)
		err = s.runSingle(p)
	} else {
		glog.Infof("Stage 1 brute force with %d workers (double sibling: %v)", workers, double)
		err = s.runWorkers(p, workers)
	}
	if err != nil {
		return nil, nil, err
	}
	return s.result()
}

func checkStage1(input []byte, tables [][][]byte, siblings [][]int) error {
	invalid := failure.InvalidState("Invalid Step1 state")
	if len(input) != 16 || len(tables) != 16 || len(siblings) != 16 {
		return invalid
	}
	for _, t := range tables {
		if len(t) != 256 {
			return invalid
		}
		seen := make(map[string]bool, 256)
		hasInput := false
		for _, d := range t {
			if len(d) != 16 || seen[string(d)] {
				return invalid
			}
			seen[string(d)] = true
			hasInput = hasInput || bytes.Equal(d, input)
		}
		if !hasInput {
			return invalid
		}
	}
	for b, sib := range siblings {
		if len(sib) != 1 && len(sib) != 2 {
			return invalid
		}
		for i, s := range sib {
			if s == b || s < 0 || s > 15 || s/4 != b/4 || (i == 1 && s == sib[0]) {
				return invalid
			}
		}
	}
	return nil
}

// VerifyStage1 checks the structure of the tables and replays every entry
// against the oracle.
func VerifyStage1(p *Proxy, input []byte, tables [][][]byte, siblings [][]int) error {
	if err := checkStage1(input, tables, siblings); err != nil {
		return err
	}
	ref, err := p.Apply(input)
	if err != nil {
		return err
	}
	for b, t := range tables {
		for x, d := range t {
			var v []byte
			if v, err = p.Apply(d); err != nil {
				return err
			}
			ok := v[b] == byte(x)
			for _, s := range siblings[b] {
				ok = ok && v[s] == ref[s]
			}
			if !ok {
				return failure.InvalidState("Invalid Step1 state")
			}
		}
	}
	glog.V(1).Infof("Stage 1 tables verified")
	return nil
}
