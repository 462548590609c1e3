package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// ErrKilled is reported by in-process servers torn down by Kill.
var ErrKilled = errors.New("mcp: server killed")

// Transport is a connected byte stream to one server instance.
type Transport struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser // nil when the server has no diagnostic stream

	// Wait blocks until the server has exited. Kill forces it to.
	Wait func() error
	Kill func() error
}

// Dialer starts a fresh server instance.
type Dialer interface {
	Dial(ctx context.Context) (*Transport, error)
}

// CommandDialer runs the server as a subprocess speaking on stdin/stdout.
type CommandDialer struct {
	Path string
	Args []string
	Env  []string // nil inherits the parent environment
}

func (d CommandDialer) Dial(ctx context.Context) (*Transport, error) {
	if d.Path == "" {
		return nil, fmt.Errorf("Dial: empty worker command")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("Dial: %w", err)
	}

	cmd := exec.Command(d.Path, d.Args...)
	cmd.Env = d.Env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("Dial: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("Dial: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("Dial: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("Dial: start %s: %w", d.Path, err)
	}

	return &Transport{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Wait:   cmd.Wait,
		Kill:   cmd.Process.Kill,
	}, nil
}

// ServeFunc serves one connection until r is exhausted.
type ServeFunc func(ctx context.Context, r io.Reader, w io.Writer) error

// PipeDialer runs the server in-process over io.Pipe.
type PipeDialer struct {
	Serve ServeFunc
}

func (d PipeDialer) Dial(ctx context.Context) (*Transport, error) {
	if d.Serve == nil {
		return nil, fmt.Errorf("Dial: nil serve func")
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	done := make(chan error, 1)

	go func() {
		err := d.Serve(ctx, inR, outW)
		_ = outW.Close()
		_ = inR.Close()
		done <- err
	}()

	var (
		once    sync.Once
		waitErr error
	)
	return &Transport{
		Stdin:  inW,
		Stdout: outR,
		Wait: func() error {
			once.Do(func() { waitErr = <-done })
			return waitErr
		},
		Kill: func() error {
			_ = inR.CloseWithError(ErrKilled)
			return outR.CloseWithError(ErrKilled)
		},
	}, nil
}

var (
	_ Dialer = CommandDialer{}
	_ Dialer = PipeDialer{}
)
