// Package cli implements the ledger command line.
package cli

import (
	"bufio"
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/c0deZ3R0/go-ledger-kit/config"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/ledger"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

const usage = `usage: ledger [-config file] [-data-dir dir] <command> [arguments]

commands:
  goal add -title T [-description D]
  goal start|unblock|complete|reset|remove|show ID
  goal block ID -note N
  goal update ID [-title T] [-description D]
  goal list [-status S] [-all]
  decision record -title T [-context C] [-rationale R] [-consequences Q]
  decision update ID [-title T] [-context C] [-rationale R] [-consequences Q]
  decision accept|remove|show ID
  decision supersede ID -by OTHER
  decision list [-status S] [-all]
  rebuild [-yes]
  check
  help
`

// usageError is a malformed invocation; Run reports it with ExitUsage.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// env is one invocation's I/O.
type env struct {
	app    *ledger.App
	stdin  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
}

// Run executes the command line args (without the program name) and returns the
// process exit code. opts are passed to ledger.Open after the CLI's own options.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, opts ...ledger.Option) int {
	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "YAML settings file")
	dataDir := fs.String("data-dir", "", "directory holding the ledger databases (overrides the config)")
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return ExitUsage
	}

	if rest[0] == "help" {
		fmt.Fprint(stdout, usage)
		return ExitOK
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n%s", rest[0], usage)
		return ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	openOpts := append([]ledger.Option{ledger.WithLogger(logging.NewLoggerTo(stderr, cfg.Log))}, opts...)
	app, err := ledger.Open(ctx, cfg, openOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", errors.UserMessage(err))
		return ExitFailure
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Fprintf(stderr, "Error: close ledger: %v\n", err)
		}
	}()

	e := &env{app: app, stdin: bufio.NewReader(stdin), stdout: stdout, stderr: stderr}
	if err := cmd(ctx, e, rest[1:]); err != nil {
		var ue usageError
		if stderrors.As(err, &ue) {
			fmt.Fprintf(stderr, "Error: %s\n\n%s", ue.msg, usage)
			return ExitUsage
		}
		fmt.Fprintf(stderr, "Error: %s\n", errors.UserMessage(err))
		return ExitFailure
	}
	return ExitOK
}

type commandFunc func(ctx context.Context, e *env, args []string) error

var commands = map[string]commandFunc{
	"goal":     runGoal,
	"decision": runDecision,
	"rebuild":  runRebuild,
	"check":    runCheck,
}

// parse parses flags that may appear before, between or after positional
// arguments and returns the positionals.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usagef("%s: %v", fs.Name(), err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// oneID parses args for a command taking exactly one id.
func oneID(fs *flag.FlagSet, args []string) (string, error) {
	pos, err := parse(fs, args)
	if err != nil {
		return "", err
	}
	if len(pos) != 1 || strings.TrimSpace(pos[0]) == "" {
		return "", usagef("%s: expected exactly one ID", fs.Name())
	}
	return pos[0], nil
}

// noArgs parses args for a command taking no positionals.
func noArgs(fs *flag.FlagSet, args []string) error {
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 0 {
		return usagef("%s: unexpected argument %q", fs.Name(), pos[0])
	}
	return nil
}

// optional returns a pointer to the flag value when the flag was given.
func optional(fs *flag.FlagSet, name string, value *string) *string {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return value
}

func subcommand(noun string, args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, usagef("%s: missing subcommand", noun)
	}
	return args[0], args[1:], nil
}
