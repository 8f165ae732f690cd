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

package util

// Broker fans out messages from publishers to every current subscriber.
// Slow subscribers miss messages instead of blocking the broker.
type Broker[T any] struct {
	stopCh    chan struct{}
	publishCh chan T
	// Unbuffered: a (un)subscription is in effect once the call returns.
	subCh     chan chan T
	unsubCh   chan chan T
}

// Buffered messages per subscriber.
const subscriberBuffer = 5

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		stopCh:    make(chan struct{}),
		publishCh: make(chan T, 1),
		subCh:     make(chan chan T),
		unsubCh:   make(chan chan T),
	}
}

// Start runs the broker until Stop.
func (b *Broker[T]) Start() {
	subs := map[chan T]struct{}{}
	for {
		select {
		case <-b.stopCh:
			return
		case ch := <-b.subCh:
			subs[ch] = struct{}{}
		case ch := <-b.unsubCh:
			delete(subs, ch)
		case msg := <-b.publishCh:
			for ch := range subs {
				select {
				case ch <- msg:
				default:
				}
			}
		}
	}
}

func (b *Broker[T]) Stop() {
	close(b.stopCh)
}

// Subscribe returns a channel receiving every message published after the
// broker registered it.
func (b *Broker[T]) Subscribe() chan T {
	ch := make(chan T, subscriberBuffer)
	b.subCh <- ch
	return ch
}

func (b *Broker[T]) Unsubscribe(ch chan T) {
	b.unsubCh <- ch
}

func (b *Broker[T]) Publish(msg T) {
	b.publishCh <- msg
}
