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
	"sync"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/codec"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

// Stage 2 faults the round feeding the last byte encodings with every value
// for each table input. The sibling byte then enumerates the group generated
// by the faults on the target byte, which Tolhuizen's algorithm turns into a
// linear labelling of the encoding.

// Follow-up jobs spawned by every 16th index, so all bytes progress together
// and a bad position is noticed early.
const jobBlock = 16

type slots [256]int

func emptySlots() *slots {
	s := &slots{}
	for i := range s {
		s[i] = -1
	}
	return s
}

type byteJob struct {
	b, index, pos int
	// Sibling pairs recorded at index 0, read-only afterwards.
	pairs *slots
}

type byteResult struct {
	byteJob
	ok  bool
	row *slots
	err error
}

type byteSearch struct {
	tables   [][][]byte
	siblings [][]int

	// [b][sibling value][index] -> target value
	res  [16][256][256]byte
	done [16][256]bool
}

func stage2Round(p *Proxy) int {
	if p.LastRoundHasMixColumns() {
		return p.Rounds() - 1
	}
	return p.Rounds() - 2
}

func stage2Fault(p *Proxy, b, pos int, value byte) oracle.Fault {
	f := oracle.Fault{Round: stage2Round(p), Byte: (b - b%4 + pos) % 16, Value: value}
	if p.LastRoundHasMixColumns() {
		return f
	}
	if p.IsEncrypt() {
		f.Byte = aesref.ShiftRowIndex[f.Byte]
	} else {
		f.Byte = aesref.InvShiftRowIndex[f.Byte]
	}
	return f
}

// checkPair compares the second sibling with what index 0 recorded for the
// first one.
func checkPair(pairs *slots, val []byte, r, s, index int) bool {
	if s < 0 {
		return true
	}
	if index == 0 {
		if pairs[val[r]] >= 0 {
			return false
		}
		pairs[val[r]] = int(val[s])
		return true
	}
	return pairs[val[r]] == int(val[s])
}

// run faults the input of table entry j.index. It reports false when the
// position does not behave like a fault on the target byte.
func (st *byteSearch) run(p *Proxy, j byteJob) (bool, *slots, error) {
	r, s := st.siblings[j.b][0], -1
	if len(st.siblings[j.b]) == 2 {
		s = st.siblings[j.b][1]
	}
	input := st.tables[j.b][j.index]
	row := emptySlots()

	val, err := p.Apply(input)
	if err != nil {
		return false, nil, err
	}
	if int(val[j.b]) != j.index {
		return false, nil, failure.InvalidState("Invalid State1 State, target byte doesn't have the expected value")
	}
	row[val[r]] = j.index
	if !checkPair(j.pairs, val, r, s, j.index) {
		return false, row, nil
	}

	chain := p.Chain(nil, false)
	for v := 1; v < 256; v++ {
		if val, err = p.ApplyFault(input, chain, stage2Fault(p, j.b, j.pos, byte(v))); err != nil {
			return false, nil, err
		}
		if row[val[r]] >= 0 {
			return false, row, nil
		}
		row[val[r]] = int(val[j.b])
		if !checkPair(j.pairs, val, r, s, j.index) {
			return false, row, nil
		}
	}
	return true, row, nil
}

// first finds the fault position of byte b on table entry 0.
func (st *byteSearch) first(p *Proxy, b int) byteResult {
	for pos := 0; pos < 16; pos++ {
		j := byteJob{b: b, pos: pos, pairs: emptySlots()}
		ok, row, err := st.run(p, j)
		if err != nil || ok {
			return byteResult{byteJob: j, ok: ok, row: row, err: err}
		}
		glog.V(1).Infof("Stage 2 byte %d: position %d rejected", b, pos)
	}
	return byteResult{byteJob: byteJob{b: b}}
}

func (st *byteSearch) record(p *Proxy, r byteResult) error {
	if r.err != nil {
		return r.err
	}
	if !r.ok || st.done[r.b][r.index] {
		return failure.FaultPosition(stage2Round(p))
	}
	for v, x := range r.row {
		st.res[r.b][v][r.index] = byte(x)
	}
	st.done[r.b][r.index] = true
	return nil
}

func (st *byteSearch) runSingle(p *Proxy) error {
	var jobs [16]byteJob
	for b := range jobs {
		r := st.first(p, b)
		if err := st.record(p, r); err != nil {
			return err
		}
		jobs[b] = r.byteJob
	}
	for index := 1; index < 256; index++ {
		for b := range jobs {
			j := jobs[b]
			j.index = index
			ok, row, err := st.run(p, j)
			if err := st.record(p, byteResult{byteJob: j, ok: ok, row: row, err: err}); err != nil {
				return err
			}
		}
		if index%jobBlock == 0 {
			glog.V(1).Infof("Stage 2: %d/256 entries done", index+1)
		}
	}
	return nil
}

func (st *byteSearch) runWorkers(p *Proxy, workers int) error {
	jobs := make(chan byteJob)
	results := make(chan byteResult)
	quit := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(quit)
		close(jobs)
		wg.Wait()
	}()

	for i := 0; i < workers; i++ {
		q, err := p.Fork()
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				var r byteResult
				if j.pairs == nil {
					r = st.first(q, j.b)
				} else {
					ok, row, err := st.run(q, j)
					r = byteResult{byteJob: j, ok: ok, row: row, err: err}
				}
				select {
				case results <- r:
				case <-quit:
					return
				}
			}
		}()
	}

	var pending []byteJob
	for b := 0; b < 16; b++ {
		pending = append(pending, byteJob{b: b})
	}
	outstanding := len(pending)
	finished := 0
	for outstanding > 0 {
		var send chan<- byteJob
		var next byteJob
		if len(pending) > 0 {
			send, next = jobs, pending[0]
		}
		select {
		case send <- next:
			pending = pending[1:]
		case r := <-results:
			outstanding--
			if err := st.record(p, r); err != nil {
				return err
			}
			if r.index%jobBlock == 0 {
				for index := r.index + 1; index < 256 && index <= r.index+jobBlock; index++ {
					pending = append(pending, byteJob{b: r.b, index: index, pos: r.pos, pairs: r.pairs})
					outstanding++
				}
			}
			if finished++; finished%(16*jobBlock) == 0 {
				glog.V(1).Infof("Stage 2: %d/%d entries done", finished, 16*256)
			}
		}
	}
	return nil
}

// Tolhuizen labels the group described by rows with GF(2) vectors. Each row
// lists the images of one group element acting on every element, and rows
// are identified by their first entry. The result maps 0 to 0 and turns the
// group law into xor.
func Tolhuizen(rows [][]byte) (*codec.Perm8, error) {
	fail := failure.Unexpected("Fail Tolhuizen's Algorithm")
	if len(rows) != 256 {
		return nil, fail
	}
	var byFirst [256][]byte
	for _, s := range rows {
		if len(s) != 256 || byFirst[s[0]] != nil {
			return nil, fail
		}
		byFirst[s[0]] = s
	}

	label := emptySlots()
	label[0] = 0
	i := 1
	for j := 0; j < 8; j++ {
		for i < 256 && label[i] >= 0 {
			i++
		}
		if i == 256 {
			return nil, fail
		}
		label[i] = 1 << uint(j)
		for k := 1; k < 256; k++ {
			if label[k] < 0 {
				continue
			}
			m := byFirst[i][k]
			if label[m] < 0 {
				label[m] = label[k] ^ label[i]
			} else if label[m] != label[k]^label[i] {
				return nil, fail
			}
		}
	}
	perm, err := codec.New(label[:])
	if err != nil {
		return nil, fail
	}
	return perm, nil
}

// Stage2 recovers the inverse of the byte encodings of the last layer, up
// to a linear map per byte.
func Stage2(p *Proxy, tables [][][]byte, siblings [][]int, workers int) (codec.Vector, error) {
	if len(tables) != 16 || len(siblings) != 16 {
		return nil, failure.InvalidArgument("expected 16 column tables, got %d", len(tables))
	}
	round := stage2Round(p)
	glog.Infof("Stage 2 faulting round %d", round)
	if err := p.PrepareFaultPosition(round, nil, false); err != nil {
		return nil, err
	}

	st := &byteSearch{tables: tables, siblings: siblings}
	var err error
	if workers < 1 {
		err = st.runSingle(p)
	} else {
		err = st.runWorkers(p, workers)
	}
	if err != nil {
		return nil, err
	}
	for b := range st.done {
		for _, d := range st.done[b] {
			if !d {
				return nil, failure.Unexpected("Fail Step2: all values weren't found")
			}
		}
	}

	gtildeInv := make(codec.Vector, 16)
	for b := range gtildeInv {
		rows := make([][]byte, 256)
		for v := range rows {
			rows[v] = st.res[b][v][:]
		}
		if gtildeInv[b], err = Tolhuizen(rows); err != nil {
			return nil, err
		}
	}
	return gtildeInv, nil
}
