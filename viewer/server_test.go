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

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	darkphoenix "github.com/SideChannelMarvels/DarkPhoenix"
	"github.com/SideChannelMarvels/DarkPhoenix/util"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func writeSnapshot(t *testing.T, dir, name string) {
	t.Helper()
	s := &darkphoenix.Snapshot{
		State:          darkphoenix.StateAffine,
		ReferenceInput: make([]byte, 16),
		ColumnTables:   make([][]darkphoenix.HexBytes, 16),
		LambdaPerByte:  darkphoenix.ByteList{1, 2},
		BetaPerByte:    darkphoenix.ByteList{0xa0, 0xb0},
		RoundKeyParts:  []darkphoenix.HexBytes{{0xde, 0xad}},
	}
	if err := s.Save(filepath.Join(dir, name+snapshotExt)); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotsAndStatus(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "b")
	writeSnapshot(t, dir, "a")
	broker := util.NewBroker[string]()
	go broker.Start()
	defer broker.Stop()
	e := newServer(dir, broker, time.Second)

	rec := get(t, e, "/snapshots?wait=false")
	var names []string
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("Snapshots (%v) did not match expected ([a b])", names)
	}

	rec = get(t, e, "/data/a")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code (%d) did not match expected (%d)", rec.Code, http.StatusOK)
	}
	var st SnapshotStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	want := SnapshotStatus{
		Name:           "a",
		State:          "affine",
		Stage:          4,
		ReferenceInput: "00000000000000000000000000000000",
		Tables:         16,
		Lambda:         "0102",
		Beta:           "a0b0",
		RoundKeyParts:  []string{"dead"},
	}
	if !reflect.DeepEqual(st, want) {
		t.Errorf("Status (%v) did not match expected (%v)", st, want)
	}

	if rec = get(t, e, "/data/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("Missing snapshot status code (%d) did not match expected (%d)", rec.Code, http.StatusNotFound)
	}
	if rec = get(t, e, "/data/..a"); rec.Code != http.StatusBadRequest {
		t.Errorf("Dotted name status code (%d) did not match expected (%d)", rec.Code, http.StatusBadRequest)
	}
}

func TestSnapshotsWaitsForChange(t *testing.T) {
	dir := t.TempDir()
	broker := util.NewBroker[string]()
	go broker.Start()
	defer broker.Stop()

	e := newServer(dir, broker, 50*time.Millisecond)
	start := time.Now()
	get(t, e, "/snapshots")
	if time.Since(start) < 50*time.Millisecond {
		t.Errorf("Request returned before the wait expired")
	}

	e = newServer(dir, broker, time.Minute)
	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- get(t, e, "/snapshots")
	}()
	for {
		broker.Publish("a" + snapshotExt)
		select {
		case rec := <-done:
			if rec.Code != http.StatusOK {
				t.Errorf("Status code (%d) did not match expected (%d)", rec.Code, http.StatusOK)
			}
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}
