// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package sshexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Options configures connections to fleet hosts. Zero values take the
// documented defaults.
type Options struct {
	// Username is the remote login. Defaults to "root"; NixOS rebuild
	// requires it.
	Username string

	// Port is the SSH port. Defaults to 22.
	Port int

	// ConnectTimeout bounds each TCP dial. Defaults to 60 seconds.
	ConnectTimeout time.Duration

	// IOTimeout is the per-operation read/write deadline once
	// connected. Rebuilds run for a long time but keep producing
	// output; a connection silent for this long is treated as dead.
	// Defaults to 5 minutes.
	IOTimeout time.Duration

	// KeyDir is the directory searched for private key files.
	// Defaults to ~/.ssh of the current user.
	KeyDir string

	// ForwardAgent requests SSH agent forwarding on every session, so
	// remote git operations can authenticate with the operator's
	// keys.
	ForwardAgent bool
}

const (
	defaultUsername       = "root"
	defaultPort           = 22
	defaultConnectTimeout = 60 * time.Second
	defaultIOTimeout      = 5 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.Username == "" {
		o.Username = defaultUsername
	}
	if o.Port == 0 {
		o.Port = defaultPort
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.IOTimeout == 0 {
		o.IOTimeout = defaultIOTimeout
	}
	if o.KeyDir == "" {
		o.KeyDir = defaultKeyDir()
	}
	return o
}

// StreamConfig controls a streaming command execution.
type StreamConfig struct {
	// PTY allocates a pseudo-terminal for the command. Build tools
	// switch to unbuffered, human-oriented output on a terminal,
	// which is what live progress needs. Terminal escapes are
	// stripped from emitted lines when set.
	PTY bool

	// Classify maps an emitted line to a short progress detail. May
	// be nil; see StreamParser.
	Classify func(string) string

	// OnLine receives each logical output line as it completes.
	OnLine LineFunc
}

// Executor runs commands on one established, authenticated
// connection. Implementations are not safe for concurrent use; each
// host pipeline owns exactly one.
type Executor interface {
	// Run executes command and returns its combined output and exit
	// status. A non-zero exit status is not an error; err reports
	// transport-level failures only.
	Run(ctx context.Context, command string) (output string, exitCode int, err error)

	// RunStreaming executes command, delivering output lines through
	// cfg as they complete, and returns the full raw transcript and
	// exit status once the command finishes.
	RunStreaming(ctx context.Context, command string, cfg StreamConfig) (transcript string, exitCode int, err error)

	// Close releases the connection.
	Close() error
}

// Connector establishes authenticated executors. The production
// implementation is Dialer; tests substitute fakes to drive pipelines
// without a network.
type Connector interface {
	// Connect dials address and works through the credential chain.
	// Each attempt is described through report so the operator can
	// watch authentication progress live. On success the returned
	// executor is ready to run commands as the configured user.
	Connect(ctx context.Context, hostname, address string, report func(line string)) (Executor, error)
}

// Client is an authenticated SSH connection to one host.
type Client struct {
	conn         *ssh.Client
	agentConn    io.Closer
	forwardAgent bool
}

var _ Executor = (*Client)(nil)

// Run executes command and captures stdout and stderr together, the
// way an operator running it in a terminal would see them.
func (c *Client) Run(ctx context.Context, command string) (string, int, error) {
	session, err := c.newSession()
	if err != nil {
		return "", 0, err
	}
	defer session.Close()

	stop := context.AfterFunc(ctx, func() { session.Close() })
	defer stop()

	output, runErr := session.CombinedOutput(command)
	code, err := exitStatus(runErr)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return string(output), 0, err
	}
	return string(output), code, nil
}

// RunStreaming executes command with its output flowing through a
// StreamParser. Stdout and stderr share one parser behind a lock, so
// lines from both interleave whole.
func (c *Client) RunStreaming(ctx context.Context, command string, cfg StreamConfig) (string, int, error) {
	session, err := c.newSession()
	if err != nil {
		return "", 0, err
	}
	defer session.Close()

	if cfg.PTY {
		modes := ssh.TerminalModes{
			ssh.ECHO:          0,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		if err := session.RequestPty("xterm", 24, 80, modes); err != nil {
			return "", 0, fmt.Errorf("request pty: %w", err)
		}
	}

	parser := NewStreamParser(cfg.PTY, cfg.Classify, cfg.OnLine)
	sink := &lockedWriter{writer: parser}
	session.Stdout = sink
	session.Stderr = sink

	stop := context.AfterFunc(ctx, func() { session.Close() })
	defer stop()

	runErr := session.Run(command)
	parser.Close()

	code, err := exitStatus(runErr)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return parser.Transcript(), 0, err
	}
	return parser.Transcript(), code, nil
}

// Close shuts down the connection and any agent link held for
// forwarding.
func (c *Client) Close() error {
	if c.agentConn != nil {
		c.agentConn.Close()
	}
	return c.conn.Close()
}

func (c *Client) newSession() (*ssh.Session, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	if c.forwardAgent {
		if err := agent.RequestAgentForwarding(session); err != nil {
			session.Close()
			return nil, fmt.Errorf("request agent forwarding: %w", err)
		}
	}
	return session, nil
}

// exitStatus splits a session run error into the command's exit code
// and a transport error. A remote command that ran and exited non-zero
// is a result, not an error.
func exitStatus(runErr error) (int, error) {
	if runErr == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return 0, runErr
}

// lockedWriter serializes the session's stdout and stderr copy
// goroutines into one ordered byte stream for the parser.
type lockedWriter struct {
	mu     sync.Mutex
	writer io.Writer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Write(p)
}

// deadlineConn refreshes the connection deadline before every read and
// write, turning a stalled peer into an error instead of a hang. The
// SSH layer above sees an ordinary net.Conn.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
