package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"deedles.dev/listq"
	"deedles.dev/listq/internal/config"
	"deedles.dev/listq/internal/harness"
	"deedles.dev/listq/internal/watchdog"
	"github.com/sirupsen/logrus"
)

const (
	maxSourceDepth = 8

	// showLimit is the most values show will print.
	showLimit = 32
)

var errQuit = errors.New("quit")

// fatalError marks errors that end the session. After a command
// exceeds its time limit, the queue may still be in use by it.
type fatalError struct {
	err error
}

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

func isFatal(err error) bool {
	return errors.As(err, new(fatalError))
}

// A console interprets commands against a single queue. Alongside
// the queue it keeps a plain slice holding what the queue should
// contain and compares the two after every operation.
type console struct {
	log *logrus.Logger
	out io.Writer
	cfg config.EnvironmentVariables

	tracker *harness.Tracker
	q       *listq.Queue
	shadow  []string

	errs  int
	depth int
}

func newConsole(cfg config.EnvironmentVariables, log *logrus.Logger, out io.Writer) *console {
	return &console{
		log:     log,
		out:     out,
		cfg:     cfg,
		tracker: harness.NewTracker(cfg.FailPercent, cfg.Seed),
	}
}

// run executes commands read line by line from r until r is
// exhausted, a quit command is read, or a fatal error occurs.
// Ordinary command failures are counted and logged.
func (c *console) run(ctx context.Context, r io.Reader) error {
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if c.cfg.EchoCommands {
			fmt.Fprintf(c.out, "cmd> %v\n", line)
		}

		err := c.exec(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return err
		case isFatal(err):
			return err
		default:
			c.errs++
			c.log.WithError(err).WithField("command", line).Error("command failed")
			if c.cfg.ErrorLimit > 0 && c.errs >= c.cfg.ErrorLimit {
				return fatalError{fmt.Errorf("error limit of %v reached", c.cfg.ErrorLimit)}
			}
		}
	}

	return s.Err()
}

func (c *console) exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	c.log.WithField("args", args[1:]).Debugf("running %v", args[0])
	return cmd.run(c, ctx, args[1:])
}

// guard runs f with allocation failures enabled and under the
// configured time limit.
func (c *console) guard(ctx context.Context, f func() error) error {
	c.tracker.SetFailing(true)
	err := watchdog.Run(ctx, c.cfg.TimeLimit, f)
	if errors.Is(err, watchdog.ErrTimeLimit) || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		return fatalError{err}
	}

	c.tracker.SetFailing(false)
	return err
}

// verify compares the queue against the shadow copy.
func (c *console) verify() error {
	if err := c.q.Check(); err != nil {
		return fmt.Errorf("queue is corrupt: %w", err)
	}

	if size := c.q.Size(); size != len(c.shadow) {
		return fmt.Errorf("queue has %v values but %v were expected", size, len(c.shadow))
	}

	got := slices.Collect(c.q.All())
	if i := mismatch(got, c.shadow); i >= 0 {
		return fmt.Errorf("value %v is %q but %q was expected", i, got[i], c.shadow[i])
	}
	return nil
}

// mismatch returns the index of the first difference between two
// slices of the same length, or -1.
func mismatch(got, want []string) int {
	for i := range got {
		if got[i] != want[i] {
			return i
		}
	}
	return -1
}

func (c *console) show() {
	if c.q == nil {
		fmt.Fprintln(c.out, "q = NULL")
		return
	}

	var sb strings.Builder
	sb.WriteString("q = [")
	var i int
	for v := range c.q.All() {
		if i == showLimit {
			sb.WriteString(" ...")
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(v)
		i++
	}
	sb.WriteByte(']')

	fmt.Fprintln(c.out, sb.String())
}

// finish releases the queue, if any, and checks that everything the
// session allocated has been released.
func (c *console) finish(ctx context.Context) error {
	if c.q != nil {
		if err := c.free(ctx); err != nil {
			return err
		}
	}
	return c.tracker.Check()
}

func (c *console) free(ctx context.Context) error {
	err := c.guard(ctx, func() error {
		c.q.Free()
		return nil
	})
	if err != nil {
		return err
	}

	c.q = nil
	c.shadow = nil
	if err := c.tracker.Check(); err != nil {
		return fmt.Errorf("free: %w", err)
	}
	return nil
}
