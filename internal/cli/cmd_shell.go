package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// shellCommands are the commands reachable from the shell prompt.
var shellCommands = []string{"info", "read", "write", "dump", "load", "verify", "print-config"}

// prompter is the part of liner.State the shell loop uses.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanPrompter serves non-interactive input such as tests or pipes through
// bufio.Scanner.
type scanPrompter struct {
	sc *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.sc.Text(), nil
}

func (p *scanPrompter) AppendHistory(string) {}

func historyFile(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".shmemctl_history")
}

func shellCmd(e *Env) *Command {
	return &Command{
		Flags: newFlags("shell"),
		Usage: "shell",
		Short: "Interactive prompt for read, write, info and dump",
		Long: `Start an interactive prompt. Each line is a command as given on the command
line: ` + strings.Join(shellCommands, ", ") + `. Type 'help' for the list and
'exit' to quit.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 0, 0, ""); err != nil {
				return err
			}

			stdin := e.Stdin
			if stdin == nil {
				stdin = os.Stdin
			}
			if stdin != os.Stdin {
				return runShell(ctx, o, e, &scanPrompter{sc: bufio.NewScanner(stdin)}, "")
			}

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)
			line.SetCompleter(completeShell)

			history := historyFile(e.Vars)
			if f, err := os.Open(history); err == nil {
				_, _ = line.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if history == "" {
					return
				}
				if f, err := os.Create(history); err == nil {
					_, _ = line.WriteHistory(f)
					_ = f.Close()
				}
			}()

			return runShell(ctx, o, e, line, "shmem> ")
		},
	}
}

func completeShell(line string) []string {
	var out []string
	for _, c := range append([]string{"help", "exit"}, shellCommands...) {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			out = append(out, c)
		}
	}
	return out
}

func runShell(ctx context.Context, o *IO, e *Env, p prompter, prompt string) error {
	for ctx.Err() == nil {
		line, err := p.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p.AppendHistory(line)

		parts := strings.Fields(line)
		name := strings.ToLower(parts[0])
		switch name {
		case "exit", "quit", "q":
			return nil
		case "help", "?":
			for _, c := range commands(e) {
				if isShellCommand(c.Name()) {
					o.Println(c.HelpLine())
				}
			}
			continue
		}

		if !isShellCommand(name) {
			o.ErrPrintln("error:", ErrUnknownCommand.Error()+":", name)
			continue
		}
		// a failing line is reported and the prompt continues
		_ = lookup(commands(e), name).Run(ctx, o, parts[1:])
	}
	return nil
}

func isShellCommand(name string) bool {
	for _, c := range shellCommands {
		if c == name {
			return true
		}
	}
	return false
}
