// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// sshagentctl inspects and drives a running sshagentd through its
// admin socket.
//
// Usage:
//
//	sshagentctl --control-socket <path> status
//	sshagentctl --control-socket <path> list-keys
//	sshagentctl --control-socket <path> remove-key <fingerprint>
//	sshagentctl --control-socket <path> lock --passphrase-file <path>
//	sshagentctl --control-socket <path> unlock --passphrase-file <path>
//
// The passphrase file path is sent as given and the passphrase itself
// is read by the daemon, never sent over the admin socket; "-" makes
// the daemon read its own stdin, not this tool's.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sshagent/control"
)

func main() {
	socketPath := pflag.String("control-socket", "", "path to the daemon's admin socket")
	passphraseFile := pflag.String("passphrase-file", "", "file holding the lock/unlock passphrase")
	pflag.Parse()

	if *socketPath == "" || pflag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: sshagentctl --control-socket <path> <status|list-keys|remove-key|lock|unlock> [args]")
		os.Exit(1)
	}

	request, err := buildRequest(pflag.Args(), *passphraseFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	response, err := roundTrip(*socketPath, request)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !response.OK {
		fmt.Fprintf(os.Stderr, "Error: %s\n", response.Error)
		os.Exit(1)
	}
	printResponse(request.Action, response)
}

func buildRequest(args []string, passphraseFile string) (control.Request, error) {
	action := args[0]
	switch action {
	case control.ActionStatus, control.ActionListKeys:
		return control.Request{Action: action}, nil
	case control.ActionRemoveKey:
		if len(args) < 2 {
			return control.Request{}, fmt.Errorf("remove-key requires a fingerprint")
		}
		return control.Request{Action: action, Fingerprint: args[1]}, nil
	case control.ActionLock, control.ActionUnlock:
		if passphraseFile == "" {
			return control.Request{}, fmt.Errorf("%s requires --passphrase-file", action)
		}
		return control.Request{Action: action, PassphraseFile: passphraseFile}, nil
	default:
		return control.Request{}, fmt.Errorf("unknown command %q", action)
	}
}

func roundTrip(socketPath string, request control.Request) (control.Response, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return control.Response{}, fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if err := control.WriteMessage(conn, &request); err != nil {
		return control.Response{}, err
	}
	var response control.Response
	if err := control.ReadMessage(conn, &response); err != nil {
		return control.Response{}, err
	}
	return response, nil
}

func printResponse(action string, response control.Response) {
	switch action {
	case control.ActionStatus:
		status := response.Status
		state := "unlocked"
		if status.Locked {
			state = "locked"
		}
		fmt.Printf("socket: %s\nstate: %s\nkeys: %d\nuptime: %ds\n",
			status.SocketPath, state, status.KeyCount, status.UptimeSeconds)
	case control.ActionListKeys:
		if len(response.Keys) == 0 {
			fmt.Println("The agent has no identities.")
			return
		}
		for _, key := range response.Keys {
			flags := ""
			if key.Constrained {
				flags += " [destination-constrained]"
			}
			if key.Confirm {
				flags += " [confirm]"
			}
			fmt.Printf("%d %s %s (%s)%s\n", key.Bits, key.Fingerprint, key.Comment, key.Family, flags)
		}
	default:
		fmt.Println("ok")
	}
}
