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

package remote_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/mocks"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
	"github.com/SideChannelMarvels/DarkPhoenix/remote"
	"github.com/SideChannelMarvels/DarkPhoenix/simulator"
)

var testKey = []byte{
	0x2b, 0x7e, 0x15, 0x16, 0x28, 0xae, 0xd2, 0xa6,
	0xab, 0xf7, 0x15, 0x88, 0x09, 0xcf, 0x4f, 0x3c,
}

// expectOpen records the flush and version exchange of NewSerialWhiteBox.
func expectOpen(t *mocks.MockTransport, version string) []*gomock.Call {
	clear := bytes.NewBufferString("xxxxxxxxxxxxxxxxxxx\n")
	return []*gomock.Call{
		// flush()
		t.EXPECT().Write(clear.Bytes()).Return(clear.Len(), nil),
		t.EXPECT().Flush().Return(nil),
		// checkVersion()
		t.EXPECT().Flush().Return(nil),
		t.EXPECT().Write([]byte{'v', '\n'}).Return(2, nil),
		t.EXPECT().Read(gomock.Any()).
			SetArg(0, []byte(version+"\n")).
			Return(len(version)+1, nil),
	}
}

func exchange(t *mocks.MockTransport, req, res string) []*gomock.Call {
	return []*gomock.Call{
		t.EXPECT().Write([]byte(req + "\n")).Return(len(req)+1, nil),
		t.EXPECT().Read(gomock.Any()).
			SetArg(0, []byte(res+"\n")).
			Return(len(res)+1, nil),
	}
}

func TestNewSerialWhiteBoxFailsOnBadVersion(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	transport := mocks.NewMockTransport(mockCtrl)
	gomock.InOrder(expectOpen(transport, "z01")...)

	_, err := remote.NewSerialWhiteBox(transport)
	if err == nil || !strings.Contains(err.Error(), "is not supported") {
		t.Errorf("NewSimpleSerial expected to fail with bad version, got %v", err)
	}
}

func TestSerialWhiteBoxCommands(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	transport := mocks.NewMockTransport(mockCtrl)
	zeros := hex.EncodeToString(make([]byte, 16))
	ones := hex.EncodeToString(bytes.Repeat([]byte{1}, 16))
	calls := expectOpen(transport, "z00")
	calls = append(calls, exchange(transport, "i", "r0c0100")...)
	calls = append(calls, exchange(transport, "p"+zeros, "r"+ones)...)
	calls = append(calls, exchange(transport, "f01080305"+zeros, "r"+ones)...)
	calls = append(calls, exchange(transport, "p"+zeros, "e"+hex.EncodeToString([]byte("boom")))...)
	gomock.InOrder(calls...)

	wb, err := remote.NewSerialWhiteBox(transport)
	if err != nil {
		t.Fatal(err)
	}
	if wb.Rounds() != 12 || !wb.IsEncrypt() || wb.HasReverse() {
		t.Errorf("Info (%d, %v, %v) did not match expected (12, true, false)", wb.Rounds(), wb.IsEncrypt(), wb.HasReverse())
	}
	out, err := wb.Apply(make([]byte, 16))
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(out) != ones {
		t.Errorf("Apply (%x) did not match expected (%s)", out, ones)
	}
	if _, err = wb.ApplyFault(make([]byte, 16), []oracle.Fault{{Round: 8, Byte: 3, Value: 5}}); err != nil {
		t.Fatal(err)
	}
	if _, err = wb.Apply(make([]byte, 16)); !errors.Is(err, failure.ErrWhiteBox) || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Apply with an error response returned %v", err)
	}
}

// serve connects a client to ServeSimpleSerial over pipes.
func serve(t *testing.T, wb oracle.WhiteBox) *remote.SerialWhiteBox {
	t.Helper()
	reqR, reqW := io.Pipe()
	resR, resW := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- remote.ServeSimpleSerial(reqR, resW, wb)
		resW.Close()
	}()
	t.Cleanup(func() {
		reqW.Close()
		if err := <-done; err != nil {
			t.Errorf("ServeSimpleSerial failed: %v", err)
		}
	})

	client, err := remote.NewSerialWhiteBox(remote.NewStream(resR, reqW))
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestServeSimpleSerial(t *testing.T) {
	for _, decrypt := range []bool{false, true} {
		wb, err := simulator.New(simulator.Config{Key: testKey, Seed: []byte("remote"), Decrypt: decrypt})
		if err != nil {
			t.Fatal(err)
		}
		client := serve(t, wb)
		if client.Rounds() != wb.Rounds() || client.IsEncrypt() != wb.IsEncrypt() || client.HasReverse() != wb.HasReverse() {
			t.Errorf("Remote info (%d, %v, %v) did not match the simulator", client.Rounds(), client.IsEncrypt(), client.HasReverse())
		}

		data := []byte("sixteen byte blk")
		faults := []oracle.Fault{{Round: 8, Byte: 2, Value: 0x40}, {Round: 9, Byte: 15, Value: 1}}
		want, _ := wb.Apply(data)
		got, err := client.Apply(data)
		if err != nil || !bytes.Equal(got, want) {
			t.Errorf("Apply (%x, %v) did not match expected (%x)", got, err, want)
		}
		want, _ = wb.ApplyReverse(data)
		got, err = client.ApplyReverse(data)
		if err != nil || !bytes.Equal(got, want) {
			t.Errorf("ApplyReverse (%x, %v) did not match expected (%x)", got, err, want)
		}
		want, _ = wb.ApplyFault(data, faults)
		got, err = client.ApplyFault(data, faults)
		if err != nil || !bytes.Equal(got, want) {
			t.Errorf("ApplyFault (%x, %v) did not match expected (%x)", got, err, want)
		}

		// The session survives a rejected command.
		if _, err = client.Apply(data[:5]); !errors.Is(err, failure.ErrWhiteBox) {
			t.Errorf("Apply of 5 bytes returned %v", err)
		}
		if _, err = client.ApplyFault(data, []oracle.Fault{{Round: 300, Byte: 0, Value: 1}}); !errors.Is(err, failure.ErrInvalidArgument) {
			t.Errorf("ApplyFault in round 300 returned %v", err)
		}
		if got, err = client.Apply(data); err != nil {
			t.Errorf("Apply after a rejected command failed: %v", err)
		}
	}
}

func TestStreamTimeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	s := remote.NewStream(r, io.Discard)
	s.SetTimeout(20 * time.Millisecond)
	if s.Timeout() != 20*time.Millisecond {
		t.Errorf("Timeout (%v) did not match expected (20ms)", s.Timeout())
	}
	if _, err := s.Read(make([]byte, 4)); err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Read without data returned %v", err)
	}

	go w.Write([]byte("abc"))
	s.SetTimeout(time.Second)
	buf := make([]byte, 4)
	n, err := s.Read(buf)
	if err != nil || string(buf[:n]) != "abc" {
		t.Errorf("Read (%q, %v) did not match expected (abc)", buf[:n], err)
	}

	w.Close()
	if _, err = s.Read(buf); err != io.EOF {
		t.Errorf("Read after close (%v) did not match expected (%v)", err, io.EOF)
	}
}
