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
	"testing"

	"github.com/golang/mock/gomock"

	darkphoenix "github.com/SideChannelMarvels/DarkPhoenix"
	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/mocks"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
	"github.com/SideChannelMarvels/DarkPhoenix/simulator"
)

var testKey = []byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
}

func identity(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// flipping returns an ApplyFault behaviour changing the first n bytes.
func flipping(n int) func([]byte, []oracle.Fault) ([]byte, error) {
	return func(data []byte, faults []oracle.Fault) ([]byte, error) {
		out, _ := identity(data)
		for i := 0; i < n; i++ {
			out[i] ^= 1
		}
		return out, nil
	}
}

func newMockWhiteBox(mockCtrl *gomock.Controller, rounds, diff int, reverse bool) *mocks.MockWhiteBox {
	wb := mocks.NewMockWhiteBox(mockCtrl)
	wb.EXPECT().Rounds().Return(rounds).AnyTimes()
	wb.EXPECT().IsEncrypt().Return(true).AnyTimes()
	wb.EXPECT().HasReverse().Return(reverse).AnyTimes()
	wb.EXPECT().Apply(gomock.Any()).DoAndReturn(identity).AnyTimes()
	wb.EXPECT().ApplyFault(gomock.Any(), gomock.Any()).DoAndReturn(flipping(diff)).AnyTimes()
	return wb
}

func TestNewProxyRounds(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	wb := newMockWhiteBox(mockCtrl, 9, 1, false)
	if _, err := darkphoenix.NewProxy(wb); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("NewProxy with 9 rounds returned %v", err)
	}
}

func TestDetectLastRound(t *testing.T) {
	for _, tc := range []struct {
		diff int
		mc   bool
		err  error
	}{
		{diff: 1, mc: false},
		{diff: 4, mc: true},
		{diff: 2, err: failure.ErrFaultPosition},
		{diff: 16, err: failure.ErrFaultPosition},
	} {
		mockCtrl := gomock.NewController(t)
		wb := newMockWhiteBox(mockCtrl, 10, tc.diff, false)
		p, err := darkphoenix.NewProxy(wb)
		switch {
		case tc.err != nil:
			if !errors.Is(err, tc.err) {
				t.Errorf("diff %d: NewProxy error (%v) did not match expected (%v)", tc.diff, err, tc.err)
			}
		case err != nil:
			t.Errorf("diff %d: NewProxy failed: %v", tc.diff, err)
		case p.LastRoundHasMixColumns() != tc.mc:
			t.Errorf("diff %d: MixColumns (%v) did not match expected (%v)", tc.diff, p.LastRoundHasMixColumns(), tc.mc)
		}
		mockCtrl.Finish()
	}
}

func TestSelfTest(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	wb := newMockWhiteBox(mockCtrl, 10, 1, true)
	gomock.InOrder(
		wb.EXPECT().ApplyReverse(gomock.Any()).DoAndReturn(identity).Times(16),
		wb.EXPECT().ApplyReverse(gomock.Any()).Return(make([]byte, 16), nil).AnyTimes(),
	)
	p, err := darkphoenix.NewProxy(wb)
	if err != nil {
		t.Fatal(err)
	}
	if err = p.SelfTest(); err != nil {
		t.Errorf("SelfTest with a true inverse failed: %v", err)
	}
	if err = p.SelfTest(); !errors.Is(err, failure.ErrWhiteBox) {
		t.Errorf("SelfTest with a broken inverse returned %v", err)
	}
}

func TestApplyReverseUndoesApply(t *testing.T) {
	wb, err := simulator.New(simulator.Config{Key: testKey, Seed: []byte("proxy")})
	if err != nil {
		t.Fatal(err)
	}
	p, err := darkphoenix.NewProxy(wb)
	if err != nil {
		t.Fatal(err)
	}
	if p.LastRoundHasMixColumns() {
		t.Errorf("Encryption last round detected with MixColumns")
	}
	data, _ := p.RandomInput(3)
	again, _ := p.RandomInput(3)
	if !bytes.Equal(data, again) {
		t.Errorf("RandomInput(3) changed between calls: %x, %x", data, again)
	}
	out, err := p.Apply(data)
	if err != nil {
		t.Fatal(err)
	}
	back, err := p.ApplyReverse(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("ApplyReverse (%x) did not match expected (%x)", back, data)
	}
}

func TestDetectLastRoundDecrypt(t *testing.T) {
	wb, err := simulator.New(simulator.Config{Key: testKey, Seed: []byte("proxy"), Decrypt: true})
	if err != nil {
		t.Fatal(err)
	}
	p, err := darkphoenix.NewProxy(wb)
	if err != nil {
		t.Fatal(err)
	}
	if !p.LastRoundHasMixColumns() {
		t.Errorf("Decryption last round detected without MixColumns")
	}
}

func TestAutoPositions(t *testing.T) {
	wb, err := simulator.NewAuto(simulator.Config{Key: testKey, Seed: []byte("positions")}, false)
	if err != nil {
		t.Fatal(err)
	}
	p, err := darkphoenix.NewProxy(wb)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsAuto() || p.LastRoundHasMixColumns() {
		t.Fatalf("Auto proxy: IsAuto %v, MixColumns %v", p.IsAuto(), p.LastRoundHasMixColumns())
	}

	round := 8
	if err = p.PrepareFaultPosition(round, nil, false); err != nil {
		t.Fatal(err)
	}
	changes := wb.Changes()
	if err = p.PrepareFaultPosition(round, nil, false); err != nil {
		t.Fatal(err)
	}
	if wb.Changes() != changes {
		t.Errorf("Known positions were searched again (%d changes, expected %d)", wb.Changes(), changes)
	}

	if err = p.HandleError(failure.FaultPosition(round, 5)); err != nil {
		t.Fatal(err)
	}
	if err = p.PrepareFaultPosition(round, nil, false); err != nil {
		t.Fatal(err)
	}
	if wb.Changes() == changes {
		t.Errorf("Position 5 was not searched again after HandleError")
	}

	if err = p.ClearFaultPosition(darkphoenix.AllPositions, darkphoenix.AllPositions); err != nil {
		t.Fatal(err)
	}
	if _, err = wb.ApplyFault(make([]byte, 16), []oracle.Fault{{Round: round, Byte: 0, Value: 1}}); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("Cleared position still bound: %v", err)
	}
	if err = p.ClearFaultPosition(round, 16); !errors.Is(err, failure.ErrInvalidArgument) {
		t.Errorf("ClearFaultPosition(%d, 16) returned %v", round, err)
	}
}

func TestHandleErrorRequiresAuto(t *testing.T) {
	wb, err := simulator.New(simulator.Config{Key: testKey, Seed: []byte("proxy")})
	if err != nil {
		t.Fatal(err)
	}
	p, err := darkphoenix.NewProxy(wb)
	if err != nil {
		t.Fatal(err)
	}
	if err = p.HandleError(failure.FaultPosition(8)); !errors.Is(err, failure.ErrUnexpected) {
		t.Errorf("HandleError on a static oracle returned %v", err)
	}
}
