// Command qtest drives a listq.Queue from a script of commands,
// checking every result against a reference model and verifying that
// no storage is leaked.
//
// Commands are read from standard input, or from the file given with
// -f. Run the help command for a list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"deedles.dev/listq/internal/config"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

type flags struct {
	file    string
	level   string
	logFile string
	malloc  int
	seed    uint64
	echo    bool
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "qtest",
		Short:        "Test a string queue implementation interactively or from a script",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.GetEnvVariables()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			env = f.apply(cmd, env)
			if err := env.Validate(); err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if f.file != "" {
				file, err := os.Open(f.file)
				if err != nil {
					return err
				}
				defer file.Close()
				in = file
			}

			log, err := newLogger(env, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			return session(cmd.Context(), env, log, in, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.file, "file", "f", "", "read commands from `file` instead of standard input")
	fs.StringVarP(&f.level, "verbose", "v", "", "log `level` (overrides QTEST_LOG_LEVEL)")
	fs.StringVarP(&f.logFile, "log", "l", "", "write the log to `file` (overrides QTEST_LOG_FILE)")
	fs.IntVarP(&f.malloc, "malloc", "p", 0, "allocation failure `percent` (overrides QTEST_FAIL_PROBABILITY)")
	fs.Uint64Var(&f.seed, "seed", 0, "seed for allocation failures (overrides QTEST_SEED)")
	fs.BoolVarP(&f.echo, "echo", "e", false, "echo commands as they are read (overrides QTEST_ECHO)")

	return cmd
}

// apply overrides env with the flags that were set explicitly.
func (f flags) apply(cmd *cobra.Command, env config.EnvironmentVariables) config.EnvironmentVariables {
	fs := cmd.Flags()
	if fs.Changed("verbose") {
		env.LogLevel = f.level
	}
	if fs.Changed("log") {
		env.LogFile = f.logFile
	}
	if fs.Changed("malloc") {
		env.FailPercent = f.malloc
	}
	if fs.Changed("seed") {
		env.Seed = f.seed
	}
	if fs.Changed("echo") {
		env.EchoCommands = f.echo
	}
	return env
}

func newLogger(env config.EnvironmentVariables, stderr io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(env.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(stderr)
	if env.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   env.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			LocalTime:  true,
		})
	}

	return log, nil
}

// session runs one console over in and reports whether it ended
// cleanly: no fatal error, no failed commands, and no leaked storage.
func session(ctx context.Context, env config.EnvironmentVariables, log *logrus.Logger, in io.Reader, out io.Writer) error {
	c := newConsole(env, log, out)

	err := c.run(ctx, in)
	if errors.Is(err, errQuit) {
		err = nil
	}
	if err != nil {
		log.WithError(err).Error("session ended early")
		return err
	}

	if err := c.finish(ctx); err != nil {
		log.WithError(err).Error("storage leaked")
		return err
	}

	allocs, failures := c.tracker.Stats()
	entry := log.WithFields(logrus.Fields{
		"allocs":   allocs,
		"failures": failures,
		"errors":   c.errs,
	})
	if c.errs > 0 {
		entry.Error("session finished with errors")
		return fmt.Errorf("%v commands failed", c.errs)
	}

	entry.Info("session finished")
	return nil
}
