package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/shm"
)

// Env is what every command sees: the resolved configuration and the process
// environment it was started with.
type Env struct {
	Config Config
	Stdin  io.Reader
	Vars   map[string]string
}

// LinkPath is the link file the configuration names.
func (e *Env) LinkPath() string {
	return filepath.Join(e.Config.Dir, e.Config.Name)
}

// attach opens the configured region without creating it. An absent region is
// an error for the companion tool.
func (e *Env) attach(ctx context.Context) (*shm.Handle, error) {
	h, err := shm.Open(ctx, e.Config.Region(shm.PolicyOpenOnly))
	if err != nil {
		return nil, err
	}
	if !h.Present() {
		return nil, fmt.Errorf("%w at %s", ErrRegionAbsent, e.LinkPath())
	}
	return h, nil
}

// commands returns a fresh set of commands bound to e. Fresh flag sets let the
// shell run the same command many times.
func commands(e *Env) []*Command {
	return []*Command{
		infoCmd(e),
		readCmd(e),
		writeCmd(e),
		dumpCmd(e),
		loadCmd(e),
		watchCmd(e),
		waitCmd(e),
		verifyCmd(e),
		serveCmd(e),
		shellCmd(e),
		rmCmd(e),
		printConfigCmd(e),
	}
}

func lookup(cmds []*Command, name string) *Command {
	for _, c := range cmds {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Run is the main entry point. Returns exit code.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	return RunContext(context.Background(), stdin, out, errOut, args, env)
}

// RunContext is Run with a context that long-running commands (watch, wait,
// serve, shell) stop on.
func RunContext(ctx context.Context, stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	o := NewIO(out, errOut)
	if len(args) == 0 {
		args = []string{"shmemctl"}
	}

	fs := flag.NewFlagSet("shmemctl", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	configPath := fs.StringP("config", "c", "", "Use specified config file")
	dir := fs.String("dir", "", "Directory holding the link file")
	name := fs.String("name", "", "Link file name")
	capacity := fs.Int("capacity", 0, "Region capacity in bytes")
	logLevel := fs.Int("log-level", logging.LevelWarn, "Log level (0 trace .. 5 silent)")
	help := fs.BoolP("help", "h", false, "Show help")

	if err := fs.Parse(args[1:]); err != nil {
		o.ErrPrintln("error:", err)
		printUsage(o, nil)
		return 1
	}

	cfg, err := LoadConfig(*configPath, env)
	if err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}
	if fs.Changed("dir") {
		cfg.Dir = *dir
	}
	if fs.Changed("name") {
		cfg.Name = *name
	}
	if fs.Changed("capacity") {
		cfg.Capacity = *capacity
	}
	switch {
	case fs.Changed("log-level"):
		logging.SetLevel(*logLevel)
	case cfg.LogLevel != nil:
		logging.SetLevel(*cfg.LogLevel)
	}
	if err := cfg.validate(); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	e := &Env{Config: cfg, Stdin: stdin, Vars: env}
	cmds := commands(e)

	rest := fs.Args()
	if *help || len(rest) == 0 || rest[0] == "help" {
		printUsage(o, cmds)
		return 0
	}

	cmd := lookup(cmds, rest[0])
	if cmd == nil {
		o.ErrPrintln("error:", fmt.Errorf("%w: %s", ErrUnknownCommand, rest[0]))
		printUsage(o, cmds)
		return 1
	}
	return cmd.Run(ctx, o, rest[1:])
}

func printUsage(o *IO, cmds []*Command) {
	o.Println(`shmemctl - inspect and drive the shared byte region

Usage: shmemctl [options] <command> [args]

Options:
  -c, --config <file>    Use specified config file
      --dir <dir>        Directory holding the link file (default $TMPDIR)
      --name <name>      Link file name (default ` + shm.DefaultName + `)
      --capacity <n>     Region capacity in bytes
      --log-level <n>    Log level, 0 trace .. 5 silent`)
	if len(cmds) == 0 {
		return
	}
	o.Println()
	o.Println("Commands:")
	for _, c := range cmds {
		o.Println(c.HelpLine())
	}
}

func requireArgs(args []string, lo, hi int, what string) error {
	if len(args) < lo {
		return fmt.Errorf("%w: %s", ErrArgRequired, what)
	}
	if hi >= 0 && len(args) > hi {
		return fmt.Errorf("%w: %v", ErrTooManyArgs, args[hi:])
	}
	return nil
}
