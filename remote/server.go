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

package remote

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"

	"github.com/SideChannelMarvels/DarkPhoenix/failure"
	"github.com/SideChannelMarvels/DarkPhoenix/oracle"
)

// ServeSimpleSerial answers simple-serial commands read from r with wb until
// r is exhausted. Oracle failures are reported to the client and do not end
// the session.
func ServeSimpleSerial(r io.Reader, w io.Writer, wb oracle.WhiteBox) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == cmdFlush {
			continue
		}
		res, err := answer(wb, line[0], line[1:])
		if err != nil {
			glog.V(1).Infof("Command %q failed: %v", line, err)
			res = string(resError) + hex.EncodeToString([]byte(err.Error()))
		}
		if _, err = io.WriteString(w, res+"\n"); err != nil {
			return fmt.Errorf("Response write failed: %v", err)
		}
	}
	return scanner.Err()
}

func answer(wb oracle.WhiteBox, cmd byte, arg string) (string, error) {
	switch cmd {
	case cmdVersion:
		return resVersion, nil
	case cmdInfo:
		info := []byte{byte(wb.Rounds()), boolByte(wb.IsEncrypt()), boolByte(wb.HasReverse())}
		return string(resOk) + hex.EncodeToString(info), nil
	}

	var err error
	var payload []byte
	if payload, err = hex.DecodeString(arg); err != nil {
		return "", failure.InvalidArgument("Invalid payload %q", arg)
	}
	var out []byte
	switch cmd {
	case cmdApply:
		out, err = wb.Apply(payload)
	case cmdReverse:
		if !wb.HasReverse() {
			return "", failure.InvalidArgument("Reverse is not available")
		}
		out, err = wb.ApplyReverse(payload)
	case cmdFault:
		var data []byte
		var faults []oracle.Fault
		if data, faults, err = decodeFaults(payload); err != nil {
			return "", err
		}
		out, err = wb.ApplyFault(data, faults)
	default:
		return "", failure.InvalidArgument("Unknown command %q", cmd)
	}
	if err != nil {
		return "", err
	}
	return string(resOk) + hex.EncodeToString(out), nil
}
