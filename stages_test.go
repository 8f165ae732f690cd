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

package darkphoenix_test

import (
	"bytes"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	darkphoenix "github.com/SideChannelMarvels/DarkPhoenix"
	"github.com/SideChannelMarvels/DarkPhoenix/aesref"
	"github.com/SideChannelMarvels/DarkPhoenix/codec"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/gf256"
	"github.com/SideChannelMarvels/DarkPhoenix/mocks"
)

// groupRows describes xor conjugated by g: row i maps k to g(g^-1(i) ^ g^-1(k)).
func groupRows(g *codec.Perm8) [][]byte {
	rows := make([][]byte, 256)
	for i := range rows {
		rows[i] = make([]byte, 256)
		for k := range rows[i] {
			rows[i][k] = g.Encode(g.Decode(byte(i)) ^ g.Decode(byte(k)))
		}
	}
	return rows
}

func TestTolhuizen(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 4; trial++ {
		table := make([]int, 256)
		for i, v := range rng.Perm(255) {
			table[i+1] = v + 1
		}
		g, err := codec.New(table)
		if err != nil {
			t.Fatal(err)
		}
		l, err := darkphoenix.Tolhuizen(groupRows(g))
		if err != nil {
			t.Fatalf("Tolhuizen failed: %v", err)
		}
		if l.Encode(0) != 0 {
			t.Errorf("Label of 0 (%d) did not match expected (0)", l.Encode(0))
		}
		// l∘g must be linear.
		lg := l.Combine(g)
		for x := 0; x < 256; x++ {
			for y := 0; y < 256; y += 17 {
				if got, want := lg.Encode(byte(x^y)), lg.Encode(byte(x))^lg.Encode(byte(y)); got != want {
					t.Fatalf("Label of %d^%d (%d) did not match expected (%d)", x, y, got, want)
				}
			}
		}
	}
}

func TestTolhuizenNonLinear(t *testing.T) {
	rows := make([][]byte, 256)
	for i := range rows {
		rows[i] = make([]byte, 256)
		for k := range rows[i] {
			rows[i][k] = byte(i + k)
		}
	}
	if _, err := darkphoenix.Tolhuizen(rows); !errors.Is(err, failure.ErrUnexpected) {
		t.Errorf("Tolhuizen on addition mod 256 returned %v", err)
	}
	if _, err := darkphoenix.Tolhuizen(rows[:255]); !errors.Is(err, failure.ErrUnexpected) {
		t.Errorf("Tolhuizen on 255 rows returned %v", err)
	}
}

// columnFaults builds observations of a column whose bytes went through
// x -> lambda^-1 * (S(y) ^ beta), y being the MixColumns output after a fault
// on row fpos.
func columnFaults(rng *rand.Rand, encrypt bool, fpos int, lambda, beta []byte) [][]byte {
	box := &aesref.SBox
	if !encrypt {
		box = &aesref.InvSBox
	}
	base := make([]byte, 4)
	rng.Read(base)
	observe := func(delta byte) []byte {
		x := make([]byte, 4)
		for row := range x {
			y := base[row] ^ gf256.Mul(aesref.MixCoef(row, fpos, !encrypt), delta)
			x[row] = gf256.Div(box[y]^beta[row], lambda[row])
		}
		return x
	}
	set := [][]byte{observe(0)}
	for v := 1; v <= 16; v++ {
		set = append(set, observe(byte(v)))
	}
	return set
}

func TestMatchColumn(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, encrypt := range []bool{true, false} {
		lambda := []byte{byte(1 + rng.Intn(255)), byte(1 + rng.Intn(255)), byte(1 + rng.Intn(255)), byte(1 + rng.Intn(255))}
		beta := make([]byte, 4)
		rng.Read(beta)
		set := columnFaults(rng, encrypt, 0, lambda, beta)

		ok, gotLambda, gotBeta, err := darkphoenix.MatchColumn(0, set, 4, encrypt, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("encrypt=%v: no match", encrypt)
			continue
		}
		if !bytes.Equal(gotLambda, lambda) || !bytes.Equal(gotBeta, beta) {
			t.Errorf("encrypt=%v: (%x, %x) did not match expected (%x, %x)", encrypt, gotLambda, gotBeta, lambda, beta)
		}

		ok, _, gotBeta, err = darkphoenix.MatchColumn(0, set, 4, encrypt, lambda)
		if err != nil || !ok || !bytes.Equal(gotBeta, beta) {
			t.Errorf("encrypt=%v with known lambda: ok %v beta %x err %v, expected %x", encrypt, ok, gotBeta, err, beta)
		}
	}
}

func TestMatchColumnArguments(t *testing.T) {
	set := make([][]byte, 17)
	for i := range set {
		set[i] = []byte{byte(i), 0, 0, 0}
	}
	for _, tc := range []struct {
		mid     int
		limited []byte
		err     error
	}{
		{mid: 1, err: failure.ErrInvalidArgument},
		{mid: 16, err: failure.ErrInvalidArgument},
		{mid: 4, limited: []byte{1, 1, 1}, err: failure.ErrUnexpected},
		{mid: 4, limited: []byte{1, 0, 1, 1}, err: failure.ErrUnexpected},
	} {
		if _, _, _, err := darkphoenix.MatchColumn(0, set, tc.mid, true, tc.limited); !errors.Is(err, tc.err) {
			t.Errorf("mid %d limited %v: error (%v) did not match expected (%v)", tc.mid, tc.limited, err, tc.err)
		}
	}
}

// One worker fails while the other is stuck in Apply: Stage1 still returns
// the error, and the stuck worker leaves once released.
func TestStage1BlockedWorker(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	input := bytes.Repeat([]byte{0xff}, 16)
	injected := errors.New("oracle lost")
	release := make(chan struct{})
	var armed int32
	var calls int32

	wb := mocks.NewMockWhiteBox(mockCtrl)
	wb.EXPECT().Rounds().Return(10).AnyTimes()
	wb.EXPECT().IsEncrypt().Return(true).AnyTimes()
	wb.EXPECT().HasReverse().Return(false).AnyTimes()
	wb.EXPECT().ApplyFault(gomock.Any(), gomock.Any()).DoAndReturn(flipping(1)).AnyTimes()
	wb.EXPECT().Apply(gomock.Any()).DoAndReturn(func(data []byte) ([]byte, error) {
		if atomic.LoadInt32(&armed) == 0 || bytes.Equal(data, input) {
			return identity(data)
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, injected
		}
		<-release
		return identity(data)
	}).AnyTimes()

	p, err := darkphoenix.NewProxy(wb)
	if err != nil {
		t.Fatal(err)
	}
	atomic.StoreInt32(&armed, 1)

	errc := make(chan error, 1)
	go func() {
		_, _, err := darkphoenix.Stage1(p, input, 2, false)
		errc <- err
	}()
	select {
	case err = <-errc:
		if !errors.Is(err, injected) {
			t.Errorf("Stage1 error (%v) did not match expected (%v)", err, injected)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("Stage1 did not return with a blocked worker")
	}
	close(release)
	time.Sleep(50 * time.Millisecond)
}
