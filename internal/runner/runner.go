// Package runner keeps a companion command running next to watch mode and
// restarts it after every regeneration, e.g. a type checker or dev server.
package runner

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultStopTimeout is how long Stop waits before force-killing.
const DefaultStopTimeout = 5 * time.Second

// Options configures a Runner.
type Options struct {
	Dir         string
	Stdout      io.Writer // defaults to os.Stdout
	Stderr      io.Writer // defaults to os.Stderr
	StopTimeout time.Duration
	Logger      *zap.Logger
}

// Runner manages one child process. It is safe for concurrent use.
type Runner struct {
	command string
	args    []string
	opts    Options

	mu   sync.Mutex
	proc *process
}

// process is one started child. err is written before done is closed.
type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// New creates a runner for command. The child never reads stdin, so it
// can't compete with the terminal.
func New(command string, args []string, opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Runner{command: command, args: args, opts: opts}
}

// Parse splits a command line on whitespace, honoring single and double
// quotes. It returns an error for an empty line or an unterminated quote.
func Parse(line string) (string, []string, error) {
	var fields []string
	var cur strings.Builder
	var quote rune
	inField := false
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inField = true
		case r == ' ' || r == '\t' || r == '\n':
			if inField {
				fields = append(fields, cur.String())
				cur.Reset()
				inField = false
			}
		default:
			cur.WriteRune(r)
			inField = true
		}
	}
	if quote != 0 {
		return "", nil, fmt.Errorf("unterminated %c quote in %q", quote, line)
	}
	if inField {
		fields = append(fields, cur.String())
	}
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return fields[0], fields[1:], nil
}

func (r *Runner) newCmd() *exec.Cmd {
	cmd := exec.Command(r.command, r.args...)
	cmd.Dir = r.opts.Dir
	cmd.Stdout = r.opts.Stdout
	cmd.Stderr = r.opts.Stderr
	return cmd
}

// Start starts the child process. A process that is still running is
// left alone.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runningLocked() {
		return nil
	}

	cmd := r.newCmd()
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", r.command, err)
	}
	p := &process{cmd: cmd, done: make(chan struct{})}
	r.proc = p
	r.opts.Logger.Debug("started process", zap.String("command", r.command), zap.Int("pid", cmd.Process.Pid))

	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return nil
}

// Stop terminates the child, force-killing it after the stop timeout.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.runningLocked() {
		return nil
	}

	p := r.proc
	terminate(p.cmd)
	select {
	case <-p.done:
	case <-time.After(r.opts.StopTimeout):
		r.opts.Logger.Warn("process ignored termination, killing", zap.String("command", r.command))
		kill(p.cmd)
		<-p.done
	}
	return nil
}

// Restart stops and restarts the child process.
func (r *Runner) Restart() error {
	if err := r.Stop(); err != nil {
		return err
	}
	return r.Start()
}

// Wait blocks until the child process exits and returns its exit error.
func (r *Runner) Wait() error {
	r.mu.Lock()
	p := r.proc
	r.mu.Unlock()
	if p == nil {
		return nil
	}
	<-p.done
	return p.err
}

// Running returns true if the child process is running.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runningLocked()
}

func (r *Runner) runningLocked() bool {
	if r.proc == nil {
		return false
	}
	select {
	case <-r.proc.done:
		return false
	default:
		return true
	}
}
