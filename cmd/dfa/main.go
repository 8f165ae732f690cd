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

// Recovers the AES key of a white-box by differential fault analysis.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/golang/glog"

	darkphoenix "github.com/SideChannelMarvels/DarkPhoenix"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
	"github.com/SideChannelMarvels/DarkPhoenix/remote"
	"github.com/SideChannelMarvels/DarkPhoenix/resolver"
	"github.com/SideChannelMarvels/DarkPhoenix/simulator"
)

var (
	targetFlag = flag.String("target", "",
		"Target command line, or tcp://host:port, speaking simple-serial; the built-in simulator when empty")
	timeoutFlag = flag.Duration("timeout", remote.DefaultTimeout, "Read timeout of the target")
	keyHexFlag  = flag.String("key", "2b7e151628aed2a6abf7158809cf4f3c",
		"Key of the built-in simulator in hex")
	seedFlag    = flag.String("seed", "", "Seed of the built-in simulator encodings")
	decryptFlag = flag.Bool("decrypt", false, "Simulate a decryption")
	autoFlag    = flag.Bool("auto", false, "Let the attack search the simulator fault positions")
	multiFlag   = flag.Bool("multifault", false, "Auto simulator positions may fault several internal bytes")

	workersFlag   = flag.Int("workers", darkphoenix.DefaultConfig().Workers, "Brute force goroutines")
	doubleFlag    = flag.Bool("double", false, "Fix two sibling bytes in the first stage")
	allRoundsFlag = flag.Bool("allrounds", false, "Recover every reachable round key")
	retryFlag     = flag.Int("retry", -1, "Retries after a fault position error, negative for unlimited")
	snapshotFlag  = flag.String("snapshot", "", "Snapshot .json.gz file saved after each stage and resumed from")
	resolverFlag  = flag.String("resolver", "", "Resolver command line, in-process when empty")
	keyLenFlag    = flag.Int("keylen", 0, "AES key length in bytes, from the round count when 0")
	offsetFlag    = flag.Int("offset", darkphoenix.NoOffset, "Index of the first round key in the AES key")
)

func init() {
	flag.Parse()
}

// target is the oracle and what releases it.
type target struct {
	wb    oracle.WhiteBox
	close func() error
}

func simulated() (*target, error) {
	var err error
	cfg := simulator.Config{Decrypt: *decryptFlag}
	if cfg.Key, err = hex.DecodeString(*keyHexFlag); err != nil {
		return nil, err
	}
	if *seedFlag != "" {
		cfg.Seed = []byte(*seedFlag)
	}
	nop := func() error { return nil }
	if *autoFlag {
		var wb *simulator.Auto
		if wb, err = simulator.NewAuto(cfg, *multiFlag); err != nil {
			return nil, err
		}
		return &target{wb, nop}, nil
	}
	var wb *simulator.WhiteBox
	if wb, err = simulator.New(cfg); err != nil {
		return nil, err
	}
	return &target{wb, nop}, nil
}

func serial(r io.Reader, w io.Writer) (*remote.SerialWhiteBox, error) {
	s := remote.NewStream(r, w)
	s.SetTimeout(*timeoutFlag)
	return remote.NewSerialWhiteBox(s)
}

func dialed(addr string) (*target, error) {
	conn, err := net.DialTimeout("tcp", addr, *timeoutFlag)
	if err != nil {
		return nil, fmt.Errorf("Dial failed: %v", err)
	}
	wb, err := serial(conn, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &target{wb, conn.Close}, nil
}

func spawned(args []string) (*target, error) {
	var err error
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	var stdin io.WriteCloser
	if stdin, err = cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("Target stdin failed: %v", err)
	}
	var stdout io.ReadCloser
	if stdout, err = cmd.StdoutPipe(); err != nil {
		return nil, fmt.Errorf("Target stdout failed: %v", err)
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("Target start failed: %v", err)
	}
	glog.V(1).Infof("Started target %s (pid %d)", cmd.Path, cmd.Process.Pid)
	wb, err := serial(stdout, stdin)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}
	return &target{wb, func() error {
		stdin.Close()
		return cmd.Wait()
	}}, nil
}

func openTarget() (*target, error) {
	switch {
	case *targetFlag == "":
		return simulated()
	case strings.HasPrefix(*targetFlag, "tcp://"):
		return dialed(strings.TrimPrefix(*targetFlag, "tcp://"))
	}
	return spawned(strings.Fields(*targetFlag))
}

func main() {
	var err error
	defer glog.Flush()

	var t *target
	if t, err = openTarget(); err != nil {
		glog.Fatal(err)
	}
	defer t.close()

	cfg := darkphoenix.Config{
		Workers:       *workersFlag,
		DoubleSibling: *doubleFlag,
		AllRounds:     *allRoundsFlag,
		Retry:         *retryFlag,
		SnapshotPath:  *snapshotFlag,
	}
	if *resolverFlag != "" {
		args := strings.Fields(*resolverFlag)
		var sub *resolver.Subprocess
		if sub, err = resolver.StartSubprocess(exec.Command(args[0], args[1:]...)); err != nil {
			glog.Fatal(err)
		}
		defer sub.Close()
		cfg.Resolver = sub
	}

	var a *darkphoenix.Attack
	if a, err = darkphoenix.NewAttack(t.wb, cfg); err != nil {
		glog.Fatal(err)
	}
	start := time.Now()
	if err = a.RunAuto(); err != nil {
		glog.Fatal(err)
	}
	glog.Infof("Attack finished in %v", time.Since(start))

	if err = a.PrintKey(os.Stdout); err != nil {
		glog.Fatal(err)
	}
	var key []byte
	if key, err = a.Key(*keyLenFlag, *offsetFlag); err != nil {
		glog.Fatal(err)
	}
	fmt.Printf("key: %x\n", key)
}
