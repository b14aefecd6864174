package opener

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/layer-3/pulselink/ports"
)

// ExecOpener hands URLs to the desktop's URL handler command.
type ExecOpener struct {
	command string
	args    []string
}

// NewExecOpener picks the handler command for the current OS.
func NewExecOpener() ports.URLOpener {
	switch runtime.GOOS {
	case "darwin":
		return &ExecOpener{command: "open"}
	case "windows":
		return &ExecOpener{command: "rundll32", args: []string{"url.dll,FileProtocolHandler"}}
	default:
		return &ExecOpener{command: "xdg-open"}
	}
}

// CanOpen reports false when there is no handler command or the URL is not an
// absolute https URL.
func (o *ExecOpener) CanOpen(ctx context.Context, raw string) (bool, error) {
	if !openable(raw) {
		return false, nil
	}
	if _, err := exec.LookPath(o.command); err != nil {
		return false, nil
	}
	return true, nil
}

// Open starts the handler and returns without waiting for it. The handler
// outlives the request that triggered it, so it is not bound to a context.
func (o *ExecOpener) Open(_ context.Context, raw string) error {
	args := append(append([]string{}, o.args...), raw)
	cmd := exec.Command(o.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to run %s: %w", o.command, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// WriterOpener prints the URL for a human or another process to open.
type WriterOpener struct {
	w io.Writer
}

func NewWriterOpener(w io.Writer) ports.URLOpener {
	return &WriterOpener{w: w}
}

func (o *WriterOpener) CanOpen(ctx context.Context, raw string) (bool, error) {
	return openable(raw), nil
}

func (o *WriterOpener) Open(ctx context.Context, raw string) error {
	_, err := fmt.Fprintln(o.w, raw)
	return err
}

func openable(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https" && u.Host != ""
}
