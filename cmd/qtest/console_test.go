package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deedles.dev/listq/internal/config"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func testConfig() config.EnvironmentVariables {
	return config.EnvironmentVariables{
		LogLevel:     "info",
		StringLength: 1024,
		TimeLimit:    time.Minute,
	}
}

func newTestConsole(t *testing.T, cfg config.EnvironmentVariables) (*console, *bytes.Buffer, *logtest.Hook) {
	t.Helper()

	log, hook := logtest.NewNullLogger()
	var out bytes.Buffer
	return newConsole(cfg, log, &out), &out, hook
}

func script(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n"))
}

func TestConsoleScenario(t *testing.T) {
	c, out, _ := newTestConsole(t, testConfig())

	err := c.run(t.Context(), script(
		"# build a,b,c",
		"new",
		"it b",
		"it c",
		"ih a",
		"size",
		"sort",
		"reverse",
		"rh c",
		"size",
		"show",
		"free",
	))
	require.NoError(t, err)
	require.Zero(t, c.errs)
	require.NoError(t, c.finish(t.Context()))

	output := out.String()
	require.Contains(t, output, "q = [a b c]\n")
	require.Contains(t, output, "Queue size = 3\n")
	require.Contains(t, output, "q = [c b a]\n")
	require.Contains(t, output, "Removed c from queue\n")
	require.Contains(t, output, "Queue size = 2\n")
	require.True(t, strings.HasSuffix(output, "q = NULL\n"), output)
}

func TestConsoleRepeatedInserts(t *testing.T) {
	c, _, _ := newTestConsole(t, testConfig())

	err := c.run(t.Context(), script(
		"new",
		"ih x 20",
		"it y 30",
		"size 5",
		"sort",
		"rh x",
		"reverse",
		"rh y",
	))
	require.NoError(t, err)
	require.Zero(t, c.errs)
	require.Equal(t, 48, c.q.Size())
	require.NoError(t, c.finish(t.Context()))
}

func TestConsoleMismatch(t *testing.T) {
	c, _, hook := newTestConsole(t, testConfig())

	err := c.run(t.Context(), script(
		"new",
		"it a",
		"rh b",
	))
	require.NoError(t, err)
	require.Equal(t, 1, c.errs)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.ErrorLevel, entry.Level)
	require.Equal(t, "command failed", entry.Message)
	require.Equal(t, "rh b", entry.Data["command"])
	require.NoError(t, c.finish(t.Context()))
}

func TestConsoleWarnings(t *testing.T) {
	c, out, hook := newTestConsole(t, testConfig())

	err := c.run(t.Context(), script(
		"rh",
		"it a",
		"size",
		"new",
		"rh",
		"reverse",
		"sort",
		"free",
	))
	require.NoError(t, err)
	require.Zero(t, c.errs)
	require.Contains(t, out.String(), "Queue size = 0\n")

	var warnings []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings = append(warnings, e.Message)
		}
	}
	require.Equal(t, []string{
		"calling remove head on null queue",
		"calling insert tail on null queue",
		"calling size on null queue",
		"calling remove head on empty queue",
	}, warnings)
}

func TestConsoleTruncation(t *testing.T) {
	c, out, _ := newTestConsole(t, testConfig())

	err := c.run(t.Context(), script(
		"option length 3",
		"new",
		"it hello",
		"rh hello",
	))
	require.NoError(t, err)
	require.Zero(t, c.errs)
	require.Contains(t, out.String(), "Removed he from queue\n")
}

func TestConsoleAllocationFailures(t *testing.T) {
	for seed := range uint64(5) {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			cfg := testConfig()
			cfg.Seed = seed
			c, _, _ := newTestConsole(t, cfg)

			err := c.run(t.Context(), script(
				"option malloc 40",
				"new",
				"it x 50",
				"ih y 50",
				"sort",
				"rhq",
				"reverse",
				"rh",
				"show",
				"new",
				"ih z 10",
				"free",
			))
			require.NoError(t, err)
			require.Zero(t, c.errs)
			require.NoError(t, c.finish(t.Context()))

			_, failures := c.tracker.Stats()
			require.NotZero(t, failures)
		})
	}
}

func TestConsoleErrorLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ErrorLimit = 2
	c, _, _ := newTestConsole(t, cfg)

	err := c.run(t.Context(), script(
		"bogus",
		"new extra",
		"new",
	))
	require.ErrorContains(t, err, "error limit of 2 reached")
	require.True(t, isFatal(err))
	require.Nil(t, c.q)
}

func TestConsoleQuit(t *testing.T) {
	c, _, _ := newTestConsole(t, testConfig())

	err := c.run(t.Context(), script(
		"new",
		"quit",
		"it a",
	))
	require.ErrorIs(t, err, errQuit)
	require.Zero(t, c.q.Size())
	require.NoError(t, c.finish(t.Context()))
}

func TestConsoleSource(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "build.cmd")
	require.NoError(t, os.WriteFile(path, []byte("new\nit a\nit b\n"), 0o644))

	c, _, _ := newTestConsole(t, testConfig())
	err := c.run(t.Context(), script(
		"source "+path,
		"rh a",
		"size",
	))
	require.NoError(t, err)
	require.Zero(t, c.errs)
	require.Equal(t, 1, c.q.Size())
	require.NoError(t, c.finish(t.Context()))

	t.Run("recursive", func(t *testing.T) {
		path := filepath.Join(dir, "loop.cmd")
		require.NoError(t, os.WriteFile(path, []byte("source "+path+"\n"), 0o644))

		c, _, _ := newTestConsole(t, testConfig())
		err := c.run(t.Context(), script("source "+path))
		require.NoError(t, err)
		require.Equal(t, 1, c.errs)
		require.Zero(t, c.depth)
	})

	t.Run("missing", func(t *testing.T) {
		c, _, _ := newTestConsole(t, testConfig())
		err := c.run(t.Context(), script("source "+filepath.Join(dir, "missing.cmd")))
		require.NoError(t, err)
		require.Equal(t, 1, c.errs)
	})
}

func TestConsoleOption(t *testing.T) {
	c, out, _ := newTestConsole(t, testConfig())

	err := c.run(t.Context(), script(
		"option malloc 200",
		"option length 0",
		"option nonsense 1",
		"option verbose loud",
		"option malloc 25",
		"option verbose debug",
		"option echo true",
		"option",
	))
	require.NoError(t, err)
	require.Equal(t, 4, c.errs)
	require.Equal(t, 25, c.tracker.Percent())
	require.Equal(t, logrus.DebugLevel, c.log.GetLevel())
	require.True(t, c.cfg.EchoCommands)
	require.Equal(t, 1024, c.cfg.StringLength)

	output := out.String()
	require.Contains(t, output, "cmd> option\n")
	require.Contains(t, output, "\tmalloc\t25\t")
}

func TestConsoleHelp(t *testing.T) {
	c, out, _ := newTestConsole(t, testConfig())

	require.NoError(t, c.run(t.Context(), script("help")))
	for name := range commands {
		require.Contains(t, out.String(), "\t"+name+" ")
	}
}

func TestRootCmd(t *testing.T) {
	dir := t.TempDir()

	run := func(t *testing.T, commands string) (string, error) {
		t.Helper()

		path := filepath.Join(dir, t.Name()[strings.LastIndex(t.Name(), "/")+1:]+".cmd")
		require.NoError(t, os.WriteFile(path, []byte(commands), 0o644))

		var out, stderr bytes.Buffer
		cmd := newRootCmd()
		cmd.SetArgs([]string{"-f", path, "--malloc", "10", "--seed", "3", "-v", "warn"})
		cmd.SetOut(&out)
		cmd.SetErr(&stderr)
		err := cmd.Execute()
		return out.String(), err
	}

	t.Run("clean", func(t *testing.T) {
		out, err := run(t, "new\nit a\nit b\nsort\nfree\n")
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(out, "q = NULL\n"), out)
	})

	t.Run("failed_command", func(t *testing.T) {
		_, err := run(t, "new\nsize 0\n")
		require.ErrorContains(t, err, "1 commands failed")
	})

	t.Run("leaked_queue_is_freed", func(t *testing.T) {
		_, err := run(t, "new\nit a\n")
		require.NoError(t, err)
	})

	t.Run("bad_flag_value", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetArgs([]string{"--malloc", "101"})
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetErr(new(bytes.Buffer))
		require.ErrorContains(t, cmd.Execute(), "fail probability")
	})
}
