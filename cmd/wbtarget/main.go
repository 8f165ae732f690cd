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

// Serves a simulated white-box AES over the simple-serial protocol, on
// stdin/stdout or on a TCP address.
package main

import (
	"encoding/hex"
	"flag"
	"net"
	"os"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/remote"
	"github.com/SideChannelMarvels/DarkPhoenix/simulator"
)

var (
	keyHexFlag = flag.String("key", "2b7e151628aed2a6abf7158809cf4f3c",
		"16, 24 or 32 byte key in hex")
	seedFlag      = flag.String("seed", "", "Seed of the encodings, random when empty")
	decryptFlag   = flag.Bool("decrypt", false, "Simulate a decryption")
	noReverseFlag = flag.Bool("noreverse", false, "Do not answer reverse requests")
	listenFlag    = flag.String("listen", "", "TCP address to serve on instead of stdin/stdout")
)

func init() {
	flag.Parse()
}

func serveConn(conn net.Conn, wb *simulator.WhiteBox) {
	defer conn.Close()
	glog.Infof("Serving %v", conn.RemoteAddr())
	if err := remote.ServeSimpleSerial(conn, conn, wb); err != nil {
		glog.Warningf("Session with %v failed: %v", conn.RemoteAddr(), err)
	}
}

func main() {
	var err error
	defer glog.Flush()

	cfg := simulator.Config{Decrypt: *decryptFlag, NoReverse: *noReverseFlag}
	if cfg.Key, err = hex.DecodeString(*keyHexFlag); err != nil {
		glog.Fatal(err)
	}
	if *seedFlag != "" {
		cfg.Seed = []byte(*seedFlag)
	}
	var wb *simulator.WhiteBox
	if wb, err = simulator.New(cfg); err != nil {
		glog.Fatal(err)
	}

	if *listenFlag == "" {
		if err = remote.ServeSimpleSerial(os.Stdin, os.Stdout, wb); err != nil {
			glog.Fatal(err)
		}
		return
	}

	var l net.Listener
	if l, err = net.Listen("tcp", *listenFlag); err != nil {
		glog.Fatal(err)
	}
	glog.Infof("Listening on %v", l.Addr())
	for {
		var conn net.Conn
		if conn, err = l.Accept(); err != nil {
			glog.Fatal(err)
		}
		go serveConn(conn, wb)
	}
}
