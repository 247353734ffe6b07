package sshexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/scottpeterman/velocitycollector/internal/model"
)

// promptPattern matches a bare device CLI prompt such as "router1#",
// "switch>" or "host$": a run of word characters, '-' or '.' ending in one
// of #, >, $ or ), ported from the Python original's prompt-detection regex.
// A mode prompt such as "router1(config)#" does not match.
var promptPattern = regexp.MustCompile(`[\w\-\.]+[#>$)]\s*$`)

// Options configures a single device connection, the equivalent of the
// Python original's SSHClientOptions.
type Options struct {
	Host    string
	Port    int
	Driver  DriverHint
	Timeout time.Duration // per-device wall clock, §4.3
}

// Client is an interactive SSH shell session against one device. Unlike a
// one-shot exec-mode session, it keeps the shell channel open across
// multiple commands so each can observe the prompt left by the previous
// one, matching the Python original's invoke_shell()-based protocol (never
// exec mode) since the job protocol in §4.3 sends commands one at a time
// and must detect the prompt between them.
type Client struct {
	opts Options
	conn *ssh.Client
	sess *ssh.Session
	in   io.WriteCloser

	mu  sync.Mutex
	buf bytes.Buffer

	prompt string
}

// NewClient constructs a Client for host, not yet connected.
func NewClient(opts Options) *Client {
	if opts.Port == 0 {
		opts.Port = 22
	}
	return &Client{opts: opts}
}

// Connect dials and authenticates, widening KEX/cipher/host-key negotiation
// when the device's driver hint is legacy. Auth tries the private key
// first (if present), then password, mirroring the Python original's
// preference for key auth when both are configured.
func (c *Client) Connect(ctx context.Context, creds model.SSHCredentials) error {
	var methods []ssh.AuthMethod

	if creds.KeyContent != "" {
		signer, err := parsePrivateKey(creds.KeyContent, creds.KeyPassphrase)
		if err != nil {
			return fmt.Errorf("parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}
	if len(methods) == 0 {
		return fmt.Errorf("no usable authentication method for %s", c.opts.Host)
	}

	cfg := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.opts.Timeout,
	}
	c.opts.Driver.ApplyLegacyNegotiation(&cfg.Config)
	if algos := c.opts.Driver.LegacyHostKeyAlgorithms(); algos != nil {
		cfg.HostKeyAlgorithms = algos
	}

	addr := net.JoinHostPort(c.opts.Host, fmt.Sprintf("%d", c.opts.Port))

	dialer := net.Dialer{Timeout: c.opts.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	c.conn = ssh.NewClient(sshConn, chans, reqs)

	sess, err := c.conn.NewSession()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("open session %s: %w", addr, err)
	}
	c.sess = sess

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("xterm", 200, 80, modes); err != nil {
		c.Close()
		return fmt.Errorf("request pty %s: %w", addr, err)
	}

	stdout, err := sess.StdoutPipe()
	if err != nil {
		c.Close()
		return fmt.Errorf("stdout pipe %s: %w", addr, err)
	}
	sess.Stderr = sess.Stdout // merge stderr into the same stream

	stdin, err := sess.StdinPipe()
	if err != nil {
		c.Close()
		return fmt.Errorf("stdin pipe %s: %w", addr, err)
	}
	c.in = stdin

	if err := sess.Shell(); err != nil {
		c.Close()
		return fmt.Errorf("start shell %s: %w", addr, err)
	}

	go c.pump(stdout)

	return nil
}

// pump continuously drains stdout into the shared buffer so readers never
// block the underlying channel.
func (c *Client) pump(r io.Reader) {
	b := make([]byte, 4096)
	for {
		n, err := r.Read(b)
		if n > 0 {
			c.mu.Lock()
			c.buf.WriteString(FilterANSI(string(b[:n])))
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) snapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *Client) drain() {
	c.mu.Lock()
	c.buf.Reset()
	c.mu.Unlock()
}

// FindPrompt sends a bare newline and waits for a stable trailing prompt
// line, the equivalent of the Python original's find_prompt().
func (c *Client) FindPrompt(ctx context.Context) (string, error) {
	c.drain()
	if _, err := c.in.Write([]byte("\n")); err != nil {
		return "", fmt.Errorf("write probe: %w", err)
	}

	deadline := time.Now().Add(c.opts.Timeout)
	var last string
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		out := c.snapshot()
		trimmed := strings.TrimRight(out, "\r\n \t")
		lines := strings.Split(trimmed, "\n")
		if len(lines) > 0 {
			candidate := strings.TrimSpace(promptPattern.FindString(strings.TrimSpace(lines[len(lines)-1])))
			if candidate != "" {
				if candidate == last {
					c.prompt = candidate
					return candidate, nil
				}
				last = candidate
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return "", fmt.Errorf("prompt detection timed out after %s", c.opts.Timeout)
}

// SetPrompt overrides the detected prompt, used when discovery already
// knows it.
func (c *Client) SetPrompt(p string) { c.prompt = p }

// RunPagingDisable sends cmd and waits for the prompt, but never returns an
// error the caller must treat as fatal — per §4.3 a paging-disable failure
// is a warning, not a per-device failure.
func (c *Client) RunPagingDisable(ctx context.Context, cmd string) error {
	if cmd == "" {
		return nil
	}
	_, err := c.sendAndWait(ctx, cmd)
	return err
}

// RunCommands executes commands one at a time in order, waiting for the
// prompt between each and sleeping interCommandPause if one is configured
// and another command follows, accumulating output with a clear separator.
func (c *Client) RunCommands(ctx context.Context, commands []string, interCommandPause time.Duration) (string, error) {
	var out strings.Builder

	for i, cmd := range commands {
		result, err := c.sendAndWait(ctx, cmd)
		if err != nil {
			return out.String(), err
		}
		if i > 0 {
			out.WriteString("\n--- \n")
		}
		out.WriteString(result)

		if interCommandPause > 0 && i < len(commands)-1 {
			select {
			case <-ctx.Done():
				return out.String(), ctx.Err()
			case <-time.After(interCommandPause):
			}
		}
	}

	return out.String(), nil
}

func (c *Client) sendAndWait(ctx context.Context, cmd string) (string, error) {
	c.drain()
	if _, err := c.in.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("send command %q: %w", cmd, err)
	}

	deadline := time.Now().Add(c.opts.Timeout)
	for {
		select {
		case <-ctx.Done():
			return c.snapshot(), ctx.Err()
		default:
		}

		out := c.snapshot()
		if c.promptReturned(out) {
			return out, nil
		}
		if time.Now().After(deadline) {
			return out, fmt.Errorf("timed out waiting for prompt after command %q", cmd)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (c *Client) promptReturned(buf string) bool {
	trimmed := strings.TrimRight(buf, "\r\n \t")
	if trimmed == "" {
		return false
	}
	lines := strings.Split(trimmed, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if c.prompt != "" {
		return strings.HasSuffix(last, c.prompt)
	}
	return promptPattern.MatchString(last)
}

// Close tears down the session and the underlying connection. It is safe to
// call multiple times.
func (c *Client) Close() error {
	var firstErr error
	if c.sess != nil {
		if err := c.sess.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.sess = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.conn = nil
	}
	return firstErr
}
