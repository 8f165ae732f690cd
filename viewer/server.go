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

// Serves the state of the attack snapshots found in a directory.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/labstack/echo"

	darkphoenix "github.com/SideChannelMarvels/DarkPhoenix"
	"github.com/SideChannelMarvels/DarkPhoenix/util"
)

var (
	portFlag = flag.Int("port", 8080, "Server HTTP port number")
	dirFlag  = flag.String("dir", "snapshots", "Directory of attack snapshots to display")
	waitFlag = flag.Duration("wait", 5*time.Minute, "Longest wait of a /snapshots request")
)

const (
	snapshotExt = ".json.gz"
)

// SnapshotStatus summarizes what an attack has recovered so far.
type SnapshotStatus struct {
	Name           string   `json:"name"`
	State          string   `json:"state"`
	Stage          int      `json:"stage"`
	ReferenceInput string   `json:"reference_input"`
	Tables         int      `json:"tables"`
	Lambda         string   `json:"lambda,omitempty"`
	Beta           string   `json:"beta,omitempty"`
	RoundKeyParts  []string `json:"round_key_parts,omitempty"`
}

func statusOf(name string, s *darkphoenix.Snapshot) SnapshotStatus {
	st := SnapshotStatus{
		Name:           name,
		State:          s.State.String(),
		Stage:          int(s.State),
		ReferenceInput: hex.EncodeToString(s.ReferenceInput),
		Tables:         len(s.ColumnTables),
		Lambda:         hex.EncodeToString(s.LambdaPerByte),
		Beta:           hex.EncodeToString(s.BetaPerByte),
	}
	for _, k := range s.RoundKeyParts {
		st.RoundKeyParts = append(st.RoundKeyParts, hex.EncodeToString(k))
	}
	return st
}

type server struct {
	dir     string
	broker  *util.Broker[string]
	maxWait time.Duration
}

// A go-routine that publishes the name of every snapshot file changed in
// dir.
func watchDirectoryChanges(dir string, broker *util.Broker[string]) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		glog.Errorf("NewWatcher failed: %v", err)
		return
	}
	defer watcher.Close()

	if err = watcher.Add(dir); err != nil {
		glog.Errorf("watcher.Add failed: %v", err)
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				glog.Warning("watcher.Events is not ok. Aborting")
				return
			}
			glog.V(1).Infof("Watcher event: %v", event)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 &&
				strings.HasSuffix(event.Name, snapshotExt) {
				broker.Publish(filepath.Base(event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				glog.Warning("watcher.Errors is not ok. Aborting")
				return
			}
			glog.Warning("Watcher error: ", err)
		}
	}
}

// waitForSnapshots returns on the first snapshot change, when the client
// goes away or after maxWait.
func (s *server) waitForSnapshots(c echo.Context) {
	timedOut := time.NewTimer(s.maxWait)
	defer timedOut.Stop()
	changed := s.broker.Subscribe()
	defer s.broker.Unsubscribe(changed)

	select {
	case <-timedOut.C:
		glog.V(1).Infof("Timed out")
	case <-c.Request().Context().Done():
		glog.V(1).Infof("Client disconnected")
	case name := <-changed:
		glog.V(1).Infof("Snapshot %s changed", name)
	}
}

func (s *server) list(c echo.Context) error {
	if c.QueryParam("wait") != "false" {
		s.waitForSnapshots(c)
	}
	files, err := filepath.Glob(filepath.Join(s.dir, "*"+snapshotExt))
	if err != nil {
		glog.Errorf("Glob failed: %v", err)
		return err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = strings.TrimSuffix(filepath.Base(f), snapshotExt)
	}
	sort.Strings(names)
	return c.JSON(http.StatusOK, names)
}

func (s *server) status(c echo.Context) error {
	name := c.Param("snapshot")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid snapshot name")
	}
	path := filepath.Join(s.dir, name+snapshotExt)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("No snapshot %s", name))
	}
	snapshot, err := darkphoenix.LoadSnapshot(path)
	if err != nil {
		glog.Errorf("Error loading snapshot file: %v", err)
		return err
	}
	return c.JSON(http.StatusOK, statusOf(name, snapshot))
}

func newServer(dir string, broker *util.Broker[string], maxWait time.Duration) *echo.Echo {
	s := &server{dir: dir, broker: broker, maxWait: maxWait}
	e := echo.New()
	e.HideBanner = true
	// Returns the snapshot names, after the next change unless wait=false.
	e.GET("/snapshots", s.list)
	e.GET("/data/:snapshot", s.status)
	return e
}

func main() {
	flag.Parse()
	defer glog.Flush()

	broker := util.NewBroker[string]()
	go broker.Start()
	go watchDirectoryChanges(*dirFlag, broker)

	e := newServer(*dirFlag, broker, *waitFlag)
	glog.Fatal(e.Start(fmt.Sprintf(":%d", *portFlag)))
}
