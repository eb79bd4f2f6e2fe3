// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package sshexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// keyFileNames are the private key files tried, in order, under the
// configured key directory.
var keyFileNames = []string{"id_ed25519", "id_rsa", "id_ecdsa", "id_dsa"}

// ErrAuthFailed reports that every credential in the chain was
// rejected. The per-attempt detail goes through the report callback;
// the error itself stays short because it becomes the host's failure
// reason.
var ErrAuthFailed = errors.New("SSH authentication failed")

// Dialer connects to fleet hosts, working through file-based keys,
// the SSH agent as a whole, and then each agent key individually
// until one authenticates.
type Dialer struct {
	Options Options

	// agentSource overrides how the SSH agent is reached. Nil means
	// the SSH_AUTH_SOCK socket.
	agentSource func() (agent.ExtendedAgent, io.Closer, error)
}

var _ Connector = (*Dialer)(nil)

// Connect dials address and authenticates as the configured user.
// Every attempt is narrated through report; on failure the collected
// attempt errors are reported as a single summary and the returned
// error is ErrAuthFailed.
func (d *Dialer) Connect(ctx context.Context, hostname, address string, report func(line string)) (Executor, error) {
	opts := d.Options.withDefaults()
	if report == nil {
		report = func(string) {}
	}
	addr := net.JoinHostPort(address, strconv.Itoa(opts.Port))

	// Reachability first, so a dead host fails once with a connection
	// error instead of once per credential.
	preflight, err := (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("Connection timeout or failed after %d seconds: %v",
			int(opts.ConnectTimeout.Seconds()), err)
	}
	preflight.Close()

	var attempts []string

	report("Trying file-based SSH keys...")
	for _, name := range keyFileNames {
		path := filepath.Join(opts.KeyDir, name)
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		signer, keyErr := loadKeyFile(path)
		if keyErr != nil {
			attempts = append(attempts, fmt.Sprintf("Key %s: %v", path, keyErr))
			continue
		}
		client, dialErr := d.handshake(ctx, addr, opts, ssh.PublicKeys(signer))
		if dialErr != nil {
			attempts = append(attempts, fmt.Sprintf("Key %s: %v", path, dialErr))
			continue
		}
		report("✓ Authenticated with key: " + path)
		return d.establish(client, opts, nil, nil)
	}

	report("Trying SSH agent authentication...")
	agentClient, agentConn, agentErr := d.openAgent()
	if agentErr != nil {
		attempts = append(attempts, fmt.Sprintf("SSH agent automatic: %v", agentErr))
	} else {
		client, dialErr := d.handshake(ctx, addr, opts, ssh.PublicKeysCallback(agentClient.Signers))
		if dialErr == nil {
			report("✓ Authenticated via SSH agent")
			return d.establish(client, opts, agentClient, agentConn)
		}
		attempts = append(attempts, fmt.Sprintf("SSH agent automatic: %v", dialErr))

		// The agent as a whole was rejected, which usually means one
		// of its keys poisoned the attempt. Retry each key alone.
		report("Trying manual agent key iteration...")
		client, manualErr := d.agentKeysOneByOne(ctx, addr, opts, agentClient, report, &attempts)
		if manualErr == nil && client != nil {
			return d.establish(client, opts, agentClient, agentConn)
		}
		agentConn.Close()
	}

	report(fmt.Sprintf("Failed to authenticate with SSH for %s.\n\nAttempted methods:\n%s",
		hostname, strings.Join(attempts, "\n")))
	return nil, ErrAuthFailed
}

// agentKeysOneByOne tries each agent identity as its own handshake,
// reporting progress per key. Returns a client on the first success.
func (d *Dialer) agentKeysOneByOne(ctx context.Context, addr string, opts Options, agentClient agent.ExtendedAgent, report func(string), attempts *[]string) (*ssh.Client, error) {
	keys, err := agentClient.List()
	if err != nil {
		*attempts = append(*attempts, fmt.Sprintf("SSH agent list: %v", err))
		return nil, err
	}
	report(fmt.Sprintf("Found %d key(s) in agent", len(keys)))

	signers, err := agentClient.Signers()
	if err != nil {
		*attempts = append(*attempts, fmt.Sprintf("SSH agent signers: %v", err))
		return nil, err
	}

	for i, signer := range signers {
		comment := ""
		if i < len(keys) {
			comment = keys[i].Comment
		}
		report(fmt.Sprintf("  Trying key #%d: %s", i+1, comment))
		client, dialErr := d.handshake(ctx, addr, opts, ssh.PublicKeys(signer))
		if dialErr != nil {
			*attempts = append(*attempts, fmt.Sprintf("Agent key '%s': %v", comment, dialErr))
			continue
		}
		report("✓ Authenticated with agent key: " + comment)
		return client, nil
	}
	return nil, ErrAuthFailed
}

// handshake dials a fresh TCP connection and runs the SSH handshake
// with exactly one auth method, so a rejection of one credential
// cannot exhaust the server's attempt budget for the next.
func (d *Dialer) handshake(ctx context.Context, addr string, opts Options, method ssh.AuthMethod) (*ssh.Client, error) {
	netDialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	wrapped := net.Conn(&deadlineConn{Conn: conn, timeout: opts.IOTimeout})

	config := &ssh.ClientConfig{
		User: opts.Username,
		Auth: []ssh.AuthMethod{method},
		// Peer identity comes from the tailnet, not host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         opts.ConnectTimeout,
	}
	sshConn, channels, requests, err := ssh.NewClientConn(wrapped, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(sshConn, channels, requests), nil
}

// establish wraps an authenticated connection as a Client and, when
// requested, arranges agent forwarding. Forwarding needs a live local
// agent even when authentication came from a key file.
func (d *Dialer) establish(client *ssh.Client, opts Options, agentClient agent.ExtendedAgent, agentConn io.Closer) (Executor, error) {
	c := &Client{conn: client, agentConn: agentConn, forwardAgent: opts.ForwardAgent}
	if !opts.ForwardAgent {
		return c, nil
	}
	if agentClient == nil {
		var err error
		agentClient, agentConn, err = d.openAgent()
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("agent forwarding requested but no agent available: %w", err)
		}
		c.agentConn = agentConn
	}
	if err := agent.ForwardToAgent(client, agentClient); err != nil {
		c.Close()
		return nil, fmt.Errorf("set up agent forwarding: %w", err)
	}
	return c, nil
}

func (d *Dialer) openAgent() (agent.ExtendedAgent, io.Closer, error) {
	if d.agentSource != nil {
		return d.agentSource()
	}
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, nil, errors.New("SSH_AUTH_SOCK not set")
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, nil, err
	}
	return agent.NewClient(conn), conn, nil
}

func loadKeyFile(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(data)
}

func defaultKeyDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ssh"
	}
	return filepath.Join(home, ".ssh")
}
