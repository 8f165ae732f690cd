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

// Byte stream transport for remote oracles.
package remote

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

//go:generate mockgen -destination=../mocks/transport.go -package=mocks github.com/SideChannelMarvels/DarkPhoenix/remote Transport
type Transport interface {
	io.Reader
	io.Writer
	// Clears any pending data from the read buffer.
	Flush() (err error)
	// Gets/Sets Read timeout.
	Timeout() time.Duration
	SetTimeout(timeout time.Duration)
}

// A full table of a white-box can take a while on slow targets.
var DefaultTimeout = 5 * time.Second

// Stream is a Transport over any reader/writer pair, e.g. the pipes of a
// child process. Incoming bytes are buffered by a background reader.
type Stream struct {
	w io.Writer

	mu      sync.Mutex
	pending []byte
	err     error
	timeout time.Duration
	arrived chan struct{}
}

func NewStream(r io.Reader, w io.Writer) *Stream {
	s := &Stream{w: w, timeout: DefaultTimeout, arrived: make(chan struct{}, 1)}
	go s.receive(r)
	return s
}

func (s *Stream) receive(r io.Reader) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		s.mu.Lock()
		s.pending = append(s.pending, chunk[:n]...)
		if err != nil {
			s.err = err
		}
		s.mu.Unlock()
		select {
		case s.arrived <- struct{}{}:
		default:
		}
		if err != nil {
			glog.V(1).Infof("Stream receiver stopped: %v", err)
			return
		}
	}
}

// Read returns as soon as some bytes are available, or fails once the
// timeout expires without any.
func (s *Stream) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	timedOut := time.NewTimer(s.Timeout())
	defer timedOut.Stop()
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			n = copy(p, s.pending)
			s.pending = s.pending[n:]
			s.mu.Unlock()
			glog.V(2).Infof("[stream-read]: %q", p[:n])
			return n, nil
		}
		err = s.err
		s.mu.Unlock()
		if err != nil {
			return 0, err
		}
		select {
		case <-s.arrived:
		case <-timedOut.C:
			return 0, fmt.Errorf("Read timed out after %v", s.Timeout())
		}
	}
}

func (s *Stream) Write(p []byte) (n int, err error) {
	glog.V(2).Infof("[stream-write]: %q", p)
	if n, err = s.w.Write(p); err != nil {
		return n, fmt.Errorf("Stream write failed: %v", err)
	}
	return n, nil
}

func (s *Stream) Flush() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > 0 {
		glog.V(1).Infof("Dropping %d pending bytes", len(s.pending))
	}
	s.pending = nil
	return nil
}

func (s *Stream) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

func (s *Stream) SetTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = timeout
}
