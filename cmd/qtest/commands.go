package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"deedles.dev/listq"
	"github.com/sirupsen/logrus"
)

type command struct {
	usage string
	help  string
	run   func(c *console, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"new": {
			help: "Create new queue",
			run:  (*console).doNew,
		},
		"free": {
			help: "Delete queue",
			run:  (*console).doFree,
		},
		"ih": {
			usage: "str [n]",
			help:  "Insert string str at head of queue n times (default: n == 1)",
			run: func(c *console, ctx context.Context, args []string) error {
				return c.doInsert(ctx, args, true)
			},
		},
		"it": {
			usage: "str [n]",
			help:  "Insert string str at tail of queue n times (default: n == 1)",
			run: func(c *console, ctx context.Context, args []string) error {
				return c.doInsert(ctx, args, false)
			},
		},
		"rh": {
			usage: "[str]",
			help:  "Remove from head of queue. Optionally compare to expected value str",
			run: func(c *console, ctx context.Context, args []string) error {
				return c.doRemove(ctx, args, false)
			},
		},
		"rhq": {
			help: "Remove from head of queue without reporting value",
			run: func(c *console, ctx context.Context, args []string) error {
				return c.doRemove(ctx, args, true)
			},
		},
		"size": {
			usage: "[n]",
			help:  "Compute queue size n times (default: n == 1)",
			run:   (*console).doSize,
		},
		"reverse": {
			help: "Reverse queue",
			run:  (*console).doReverse,
		},
		"sort": {
			help: "Sort queue in ascending order",
			run:  (*console).doSort,
		},
		"show": {
			help: "Display queue contents",
			run:  (*console).doShow,
		},
		"option": {
			usage: "[name val]",
			help:  "Display or set options",
			run:   (*console).doOption,
		},
		"source": {
			usage: "file",
			help:  "Read commands from source file",
			run:   (*console).doSource,
		},
		"help": {
			help: "Show documentation",
			run:  (*console).doHelp,
		},
		"quit": {
			help: "Exit program",
			run: func(*console, context.Context, []string) error {
				return errQuit
			},
		},
	}
}

func wantArgs(args []string, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("expected %v to %v arguments, got %v", lo, hi, len(args))
	}
	return nil
}

func parseCount(args []string, i int) (int, error) {
	if len(args) <= i {
		return 1, nil
	}

	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", args[i], err)
	}
	if n < 1 {
		return 0, fmt.Errorf("count must be positive, got %v", n)
	}
	return n, nil
}

func (c *console) doNew(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 0); err != nil {
		return err
	}

	if c.q != nil {
		if err := c.free(ctx); err != nil {
			return err
		}
	}

	var q *listq.Queue
	err := c.guard(ctx, func() (err error) {
		q, err = listq.New(listq.WithAllocator(c.tracker))
		return err
	})
	switch {
	case errors.Is(err, listq.ErrNoMemory):
		c.log.Warn("allocation failed while creating queue")
	case err != nil:
		return err
	}

	c.q = q
	c.shadow = nil
	c.show()
	return nil
}

func (c *console) doFree(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 0); err != nil {
		return err
	}

	if c.q == nil {
		c.log.Warn("calling free on null queue")
	}
	err := c.free(ctx)
	c.show()
	return err
}

func (c *console) doInsert(ctx context.Context, args []string, head bool) error {
	if err := wantArgs(args, 1, 2); err != nil {
		return err
	}
	n, err := parseCount(args, 1)
	if err != nil {
		return err
	}

	op := "insert tail"
	insert := c.q.InsertTail
	if head {
		op = "insert head"
		insert = c.q.InsertHead
	}
	if c.q == nil {
		c.log.Warnf("calling %v on null queue", op)
	}

	s := args[0]
	for range n {
		err := c.guard(ctx, func() error { return insert(s) })
		switch {
		case isFatal(err):
			return err

		case c.q == nil:
			if !errors.Is(err, listq.ErrNilQueue) {
				return fmt.Errorf("%v on null queue returned %v", op, err)
			}

		case errors.Is(err, listq.ErrNoMemory):
			c.log.WithField("value", s).Warnf("allocation failed during %v", op)

		case err != nil:
			return fmt.Errorf("%v: %w", op, err)

		case head:
			c.shadow = slices.Insert(c.shadow, 0, s)

		default:
			c.shadow = append(c.shadow, s)
		}
	}

	if err := c.verify(); err != nil {
		return err
	}
	c.show()
	return nil
}

func (c *console) doRemove(ctx context.Context, args []string, quiet bool) error {
	hi := 1
	if quiet {
		hi = 0
	}
	if err := wantArgs(args, 0, hi); err != nil {
		return err
	}

	var buf []byte
	if !quiet {
		buf = make([]byte, c.cfg.StringLength)
	}

	err := c.guard(ctx, func() error { return c.q.RemoveHead(buf) })
	switch {
	case isFatal(err):
		return err

	case c.q == nil:
		if !errors.Is(err, listq.ErrNilQueue) {
			return fmt.Errorf("remove head on null queue returned %v", err)
		}
		c.log.Warn("calling remove head on null queue")
		return nil

	case len(c.shadow) == 0:
		if !errors.Is(err, listq.ErrEmpty) {
			return fmt.Errorf("remove head on empty queue returned %v", err)
		}
		c.log.Warn("calling remove head on empty queue")
		return nil

	case err != nil:
		return fmt.Errorf("remove head: %w", err)
	}

	want := c.shadow[0]
	c.shadow = c.shadow[1:]

	if !quiet {
		got := string(buf[:bytes.IndexByte(buf, 0)])
		fmt.Fprintf(c.out, "Removed %v from queue\n", got)

		if len(args) == 1 {
			want = args[0]
		}
		if len(want) >= len(buf) {
			want = want[:len(buf)-1]
		}
		if got != want {
			return fmt.Errorf("removed value %q but %q was expected", got, want)
		}
	}

	if err := c.verify(); err != nil {
		return err
	}
	c.show()
	return nil
}

func (c *console) doSize(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 1); err != nil {
		return err
	}
	n, err := parseCount(args, 0)
	if err != nil {
		return err
	}

	if c.q == nil {
		c.log.Warn("calling size on null queue")
	}

	var size int
	for range n {
		err := c.guard(ctx, func() error {
			size = c.q.Size()
			return nil
		})
		if err != nil {
			return err
		}
	}

	if size != len(c.shadow) {
		return fmt.Errorf("computed queue size as %v, but correct value is %v", size, len(c.shadow))
	}
	fmt.Fprintf(c.out, "Queue size = %v\n", size)
	return nil
}

func (c *console) doReverse(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 0); err != nil {
		return err
	}

	if c.q == nil {
		c.log.Warn("calling reverse on null queue")
	}
	err := c.guard(ctx, func() error {
		c.q.Reverse()
		return nil
	})
	if err != nil {
		return err
	}

	slices.Reverse(c.shadow)
	if err := c.verify(); err != nil {
		return err
	}
	c.show()
	return nil
}

func (c *console) doSort(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 0); err != nil {
		return err
	}

	if c.q == nil {
		c.log.Warn("calling sort on null queue")
	}
	err := c.guard(ctx, func() error {
		c.q.Sort()
		return nil
	})
	if err != nil {
		return err
	}

	slices.Sort(c.shadow)
	if err := c.verify(); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	c.show()
	return nil
}

func (c *console) doShow(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 0); err != nil {
		return err
	}

	c.show()
	return c.verify()
}

func (c *console) doOption(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		fmt.Fprintf(c.out, "Options:\n")
		fmt.Fprintf(c.out, "\techo\t%v\tEcho commands as they are read\n", c.cfg.EchoCommands)
		fmt.Fprintf(c.out, "\tfail\t%v\tNumber of command errors that ends the session (0: unlimited)\n", c.cfg.ErrorLimit)
		fmt.Fprintf(c.out, "\tlength\t%v\tSize of the buffer removed values are copied into\n", c.cfg.StringLength)
		fmt.Fprintf(c.out, "\tmalloc\t%v\tAllocation failure probability (percent)\n", c.tracker.Percent())
		fmt.Fprintf(c.out, "\tverbose\t%v\tLog level\n", c.log.GetLevel())
		return nil

	case 2:
	default:
		return fmt.Errorf("expected 0 or 2 arguments, got %v", len(args))
	}

	name, val := args[0], args[1]
	switch name {
	case "echo":
		v, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("option %v: %w", name, err)
		}
		c.cfg.EchoCommands = v

	case "fail", "length", "malloc":
		v, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("option %v: %w", name, err)
		}

		cfg := c.cfg
		switch name {
		case "fail":
			cfg.ErrorLimit = v
		case "length":
			cfg.StringLength = v
		case "malloc":
			cfg.FailPercent = v
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("option %v: %w", name, err)
		}

		c.cfg = cfg
		c.tracker.SetPercent(cfg.FailPercent)

	case "verbose":
		level, err := logrus.ParseLevel(val)
		if err != nil {
			return fmt.Errorf("option %v: %w", name, err)
		}
		c.log.SetLevel(level)

	default:
		return fmt.Errorf("unknown option %q", name)
	}

	return nil
}

func (c *console) doSource(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, 1); err != nil {
		return err
	}
	if c.depth >= maxSourceDepth {
		return fmt.Errorf("source files nested more than %v deep", maxSourceDepth)
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer file.Close()

	c.depth++
	defer func() { c.depth-- }()

	return c.run(ctx, file)
}

func (c *console) doHelp(ctx context.Context, args []string) error {
	fmt.Fprintf(c.out, "Commands:\n")
	for _, name := range slices.Sorted(maps.Keys(commands)) {
		cmd := commands[name]
		fmt.Fprintf(c.out, "\t%v %v\t| %v\n", name, cmd.usage, cmd.help)
	}
	return nil
}
