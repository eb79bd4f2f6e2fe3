// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package sshexec

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// testServer is an in-process SSH server for exercising the dialer
// and client against real handshakes instead of mocks.
type testServer struct {
	listener net.Listener
	config   *ssh.ServerConfig

	mu              sync.Mutex
	commands        map[string]testCommand
	ptyRequests     int
	forwardRequests int
}

type testCommand struct {
	chunks []string
	exit   int
	hang   bool
}

// newTestServer starts an SSH server on a loopback port that accepts
// public key authentication for exactly the given keys.
func newTestServer(t *testing.T, authorized ...ssh.PublicKey) *testServer {
	t.Helper()

	allowed := make(map[string]bool, len(authorized))
	for _, key := range authorized {
		allowed[string(key.Marshal())] = true
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if allowed[string(key.Marshal())] {
				return nil, nil
			}
			return nil, errors.New("unknown public key")
		},
	}
	config.AddHostKey(generateSigner(t))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	server := &testServer{
		listener: listener,
		config:   config,
		commands: make(map[string]testCommand),
	}
	go server.acceptLoop()
	return server
}

func (s *testServer) host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

func (s *testServer) port() int {
	_, portText, _ := net.SplitHostPort(s.listener.Addr().String())
	port, _ := strconv.Atoi(portText)
	return port
}

// handle registers a command. Its chunks are written to the session
// in order, simulating how output arrives in separate reads.
func (s *testServer) handle(command string, exit int, chunks ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[command] = testCommand{chunks: chunks, exit: exit}
}

// handleHanging registers a command that produces no output and never
// exits, for cancellation tests.
func (s *testServer) handleHanging(command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[command] = testCommand{hang: true}
}

func (s *testServer) ptyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ptyRequests
}

func (s *testServer) forwardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forwardRequests
}

func (s *testServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *testServer) handleConn(netConn net.Conn) {
	conn, channels, requests, err := ssh.NewServerConn(netConn, s.config)
	if err != nil {
		netConn.Close()
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(requests)
	for newChannel := range channels {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "only sessions are supported")
			continue
		}
		channel, channelRequests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(channel, channelRequests)
	}
}

func (s *testServer) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()
	for req := range requests {
		switch req.Type {
		case "pty-req":
			s.mu.Lock()
			s.ptyRequests++
			s.mu.Unlock()
			req.Reply(true, nil)
		case "auth-agent-req@openssh.com":
			s.mu.Lock()
			s.forwardRequests++
			s.mu.Unlock()
			req.Reply(true, nil)
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			s.mu.Lock()
			cmd, known := s.commands[payload.Command]
			s.mu.Unlock()
			if !known {
				fmt.Fprintf(channel, "unknown command: %s\n", payload.Command)
				cmd = testCommand{exit: 127}
			}
			if cmd.hang {
				// Block until the client tears the session down:
				// keep ranging over requests, which ends when the
				// channel closes. The deferred close then answers
				// the client's wait without an exit status.
				continue
			}
			for _, chunk := range cmd.chunks {
				channel.Write([]byte(chunk))
			}
			sendExitStatus(channel, cmd.exit)
			return
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

func sendExitStatus(channel ssh.Channel, code int) {
	status := struct{ Status uint32 }{Status: uint32(code)}
	channel.SendRequest("exit-status", false, ssh.Marshal(&status))
}

// generateKey returns a fresh ed25519 key pair with the public half
// in SSH wire form.
func generateKey(t *testing.T) (ssh.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("convert public key: %v", err)
	}
	return sshPub, priv
}

func generateSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}
	return signer
}

// writeKeyFile stores a private key in OpenSSH PEM form under dir.
func writeKeyFile(t *testing.T, dir, name string, key ed25519.PrivateKey) string {
	t.Helper()
	block, err := ssh.MarshalPrivateKey(key, "")
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	return path
}

// newTestAgent builds an in-memory agent keyring holding the given
// keys, commented key-1, key-2, and so on in order.
func newTestAgent(t *testing.T, keys ...ed25519.PrivateKey) agent.ExtendedAgent {
	t.Helper()
	keyring := agent.NewKeyring()
	for i, key := range keys {
		added := agent.AddedKey{PrivateKey: key, Comment: fmt.Sprintf("key-%d", i+1)}
		if err := keyring.Add(added); err != nil {
			t.Fatalf("add agent key: %v", err)
		}
	}
	extended, ok := keyring.(agent.ExtendedAgent)
	if !ok {
		t.Fatal("keyring does not implement agent.ExtendedAgent")
	}
	return extended
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// testOptions returns dial options pointed at the test server with
// timeouts short enough for tests.
func testOptions(server *testServer) Options {
	return Options{
		Username:       "tester",
		Port:           server.port(),
		ConnectTimeout: 5 * time.Second,
		IOTimeout:      5 * time.Second,
	}
}
