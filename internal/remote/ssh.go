package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultDialTimeout = 15 * time.Second

// SSHConfig configures SSHExecutor.
type SSHConfig struct {
	User                  string
	Port                  int
	KeyPath               string
	KnownHostsPath        string
	InsecureIgnoreHostKey bool
	Timeout               time.Duration
}

// SSHExecutor runs commands with an in-process SSH client.
type SSHExecutor struct {
	cfg          SSHConfig
	clientConfig *ssh.ClientConfig
	dial         func(ctx context.Context, network, addr string) (net.Conn, error)
	log          zerolog.Logger
}

// NewSSHExecutor loads the private key and host key policy described by cfg.
func NewSSHExecutor(cfg SSHConfig, log zerolog.Logger) (*SSHExecutor, error) {
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDialTimeout
	}

	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}

	hostKeys, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	return &SSHExecutor{
		cfg: cfg,
		clientConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeys,
			Timeout:         cfg.Timeout,
		},
		dial: d.DialContext,
		log:  log.With().Str("component", "ssh").Logger(),
	}, nil
}

func hostKeyCallback(cfg SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec
	}
	path := cfg.KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate known_hosts: %w", err)
		}
		path = home + "/.ssh/known_hosts"
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", path, err)
	}
	return cb, nil
}

// Execute implements Executor. The handshake and session setup are bounded
// by the configured timeout; cancelling ctx closes the connection at any
// stage.
func (e *SSHExecutor) Execute(ctx context.Context, host, command string) (string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(e.cfg.Port))
	display := fmt.Sprintf("ssh %s@%s %s", e.cfg.User, host, command)

	dialCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	conn, err := e.dial(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		return "", unexpected(display, fmt.Errorf("dial %s: %w", addr, err))
	}

	// Closing conn unblocks the handshake, session setup and the running
	// command alike.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	_ = conn.SetDeadline(time.Now().Add(e.cfg.Timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, e.clientConfig)
	if err != nil {
		_ = conn.Close()
		return "", unexpected(display, fmt.Errorf("ssh handshake with %s: %w", addr, cause(ctx, err)))
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", unexpected(display, fmt.Errorf("open session: %w", cause(ctx, err)))
	}
	defer session.Close()
	_ = conn.SetDeadline(time.Time{})

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(command)
	if err != nil && ctx.Err() != nil {
		return "", unexpected(display, ctx.Err())
	}

	if err == nil {
		e.log.Debug().Str("host", host).Msg("remote command completed")
		return stdout.String(), nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		stderrMsg := strings.TrimSpace(stderr.String())
		if stderrMsg == "" {
			stderrMsg = "No error message available"
		}
		return "", &onecli.CommandError{
			Command:  display,
			ExitCode: exitErr.ExitStatus(),
			Stderr:   stderrMsg,
			Stdout:   strings.TrimSpace(stdout.String()),
			Message:  fmt.Sprintf("Command: %s\nExit code: %d\nError message: %s", display, exitErr.ExitStatus(), stderrMsg),
			Err:      err,
		}
	}
	return "", unexpected(display, err)
}

// cause prefers the context error when ctx ended the connection.
func cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func unexpected(command string, err error) *onecli.CommandError {
	return &onecli.CommandError{
		Command:  command,
		ExitCode: onecli.ExitUnexpected,
		Stderr:   "Unexpected error",
		Message:  fmt.Sprintf("Command execution failed via direct SSH: %v", err),
		Err:      err,
	}
}
