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

// simple-serial white-box client.
package remote

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

// SerialWhiteBox is an oracle.WhiteBox answered by a remote target speaking
// the simple-serial protocol. Calls are serialized over the single line.
type SerialWhiteBox struct {
	mu sync.Mutex
	t  Transport
	rd *bufio.Reader

	rounds  int
	encrypt bool
	reverse bool
}

func NewSerialWhiteBox(t Transport) (*SerialWhiteBox, error) {
	var err error
	glog.V(1).Infof("Opening simple-serial white-box")
	s := &SerialWhiteBox{t: t, rd: bufio.NewReader(t)}
	if err = s.flush(); err != nil {
		return nil, err
	}
	if err = s.checkVersion(); err != nil {
		return nil, err
	}
	var info []byte
	if info, err = s.command(cmdInfo, nil); err != nil {
		return nil, err
	}
	if len(info) != 3 {
		return nil, fmt.Errorf("Info response %x invalid", info)
	}
	s.rounds, s.encrypt, s.reverse = int(info[0]), info[1] != 0, info[2] != 0
	glog.Infof("Remote white-box: %d rounds, encrypt %v, reverse %v", s.rounds, s.encrypt, s.reverse)
	return s, nil
}

func (s *SerialWhiteBox) flush() error {
	var err error
	// 'x' resets the target to idle.
	reset := bytes.Repeat([]byte{cmdFlush}, 19)
	if _, err = s.t.Write(append(reset, '\n')); err != nil {
		return fmt.Errorf("Failed to write flush command: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err = s.t.Flush(); err != nil {
		return fmt.Errorf("Failed to flush read buffer: %v", err)
	}
	s.rd.Reset(s.t)
	return nil
}

func (s *SerialWhiteBox) checkVersion() error {
	var err error
	if err = s.t.Flush(); err != nil {
		return fmt.Errorf("Flush failed: %v", err)
	}
	if _, err = s.t.Write([]byte{cmdVersion, '\n'}); err != nil {
		return fmt.Errorf("Failed to write ver command: %v", err)
	}
	var res string
	if res, err = s.responseLine(); err != nil {
		return fmt.Errorf("Failed to read ver response: %v", err)
	}
	if res != resVersion {
		return fmt.Errorf("Version %q is not supported", res)
	}
	return nil
}

func (s *SerialWhiteBox) responseLine() (string, error) {
	res, err := s.rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(res, "\n"), nil
}

// command sends one request line and decodes its response.
func (s *SerialWhiteBox) command(cmd byte, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	line := fmt.Sprintf("%c%s\n", cmd, hex.EncodeToString(payload))
	if _, err = s.t.Write([]byte(line)); err != nil {
		return nil, fmt.Errorf("Failed to write %c command: %v", cmd, err)
	}
	var res string
	if res, err = s.responseLine(); err != nil {
		return nil, fmt.Errorf("Failed to read %c response: %v", cmd, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("Empty response to %c command", cmd)
	}
	var body []byte
	if body, err = hex.DecodeString(res[1:]); err != nil {
		return nil, fmt.Errorf("Res error %v", res)
	}
	switch res[0] {
	case resOk:
		return body, nil
	case resError:
		return nil, failure.WhiteBox("Remote %c command failed: %s", cmd, body)
	}
	return nil, fmt.Errorf("Res error %v", res)
}

func (s *SerialWhiteBox) block(cmd byte, payload []byte) ([]byte, error) {
	out, err := s.command(cmd, payload)
	if err != nil {
		return nil, err
	}
	if len(out) != blockSize {
		return nil, failure.WhiteBox("Remote %c command returned %d bytes", cmd, len(out))
	}
	return out, nil
}

func (s *SerialWhiteBox) Rounds() int {
	return s.rounds
}

func (s *SerialWhiteBox) IsEncrypt() bool {
	return s.encrypt
}

func (s *SerialWhiteBox) HasReverse() bool {
	return s.reverse
}

func (s *SerialWhiteBox) Apply(data []byte) ([]byte, error) {
	return s.block(cmdApply, data)
}

func (s *SerialWhiteBox) ApplyReverse(data []byte) ([]byte, error) {
	return s.block(cmdReverse, data)
}

func (s *SerialWhiteBox) ApplyFault(data []byte, faults []oracle.Fault) ([]byte, error) {
	frame, err := encodeFaults(data, faults)
	if err != nil {
		return nil, err
	}
	return s.block(cmdFault, frame)
}
