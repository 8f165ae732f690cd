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

package resolver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
)

const (
	stopCommand = "stop"

	DefaultStopTimeout = time.Second
)

// Subprocess talks to a resolver process over line-delimited JSON.
type Subprocess struct {
	mu          sync.Mutex
	cmd         *exec.Cmd
	in          io.WriteCloser
	out         *bufio.Reader
	closed      bool
	StopTimeout time.Duration
}

// StartSubprocess starts cmd with its stdin and stdout connected to the
// resolver session.
func StartSubprocess(cmd *exec.Cmd) (*Subprocess, error) {
	var err error
	s := &Subprocess{cmd: cmd, StopTimeout: DefaultStopTimeout}
	if s.in, err = cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("Resolver stdin failed: %v", err)
	}
	var stdout io.ReadCloser
	if stdout, err = cmd.StdoutPipe(); err != nil {
		return nil, fmt.Errorf("Resolver stdout failed: %v", err)
	}
	s.out = bufio.NewReader(stdout)
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("Resolver start failed: %v", err)
	}
	glog.V(1).Infof("Started resolver %s (pid %d)", cmd.Path, cmd.Process.Pid)
	return s, nil
}

func (s *Subprocess) Resolve(req *Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, failure.Unexpected("Cannot call resolver after Close")
	}

	var err error
	var line []byte
	if line, err = json.Marshal(req); err != nil {
		return nil, err
	}
	if _, err = s.in.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("Resolver write failed: %v", err)
	}
	var resp string
	if resp, err = s.out.ReadString('\n'); err != nil {
		return nil, fmt.Errorf("Resolver read failed: %v", err)
	}
	r := &Response{}
	if err = json.Unmarshal([]byte(resp), r); err != nil {
		return nil, fmt.Errorf("Resolver response %q invalid: %v", strings.TrimSpace(resp), err)
	}
	return r, nil
}

// Close sends the stop line and waits StopTimeout for the process to exit
// before killing it.
func (s *Subprocess) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if _, err := io.WriteString(s.in, stopCommand+"\n"); err != nil {
		glog.V(1).Infof("Resolver stop failed: %v", err)
	}
	s.in.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()
	timer := time.NewTimer(s.StopTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		glog.Warningf("Resolver did not stop within %v, killing it", s.StopTimeout)
		s.cmd.Process.Kill()
		<-done
		return nil
	}
}

// Serve answers requests read from r until EOF or the stop line.
func Serve(r io.Reader, w io.Writer, res Resolver) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == stopCommand {
			return nil
		}
		if line == "" {
			continue
		}
		req := &Request{}
		var err error
		if err = json.Unmarshal([]byte(line), req); err != nil {
			return fmt.Errorf("Request %q invalid: %v", line, err)
		}
		var resp *Response
		if resp, err = res.Resolve(req); err != nil {
			return err
		}
		var out []byte
		if out, err = json.Marshal(resp); err != nil {
			return err
		}
		if _, err = w.Write(append(out, '\n')); err != nil {
			return fmt.Errorf("Response write failed: %v", err)
		}
	}
	return scanner.Err()
}
