package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	inboundhttp "github.com/gatten-sekisho/sekisho/internal/adapter/inbound/http"
	"github.com/gatten-sekisho/sekisho/internal/domain/session"
	"github.com/gatten-sekisho/sekisho/internal/service"
)

const consolePrompt = "sekisho> "

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive session",
	Long: `Start an interactive session against the decision service. The session
keeps the request, context, last submit and last execute between commands,
so a permit issued by "submit" is used by a later "execute".

Type "help" at the prompt for the command list.

With --metrics-addr (or metrics.addr) the console also serves Prometheus
metrics on /metrics and a connectivity check on /health.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().String("metrics-addr", "", "serve /metrics and /health on host:port")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if addr := a.cfg.Metrics.Addr; addr != "" {
		server := inboundhttp.NewServer(
			inboundhttp.WithAddr(addr),
			inboundhttp.WithRegistry(a.registry),
			inboundhttp.WithHealthChecker(inboundhttp.NewHealthChecker(a.connectivity, Version)),
			inboundhttp.WithLogger(a.logger),
		)
		bound, err := server.Listen()
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
		a.renderer.Textf("Serving metrics on http://%s/metrics", bound)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil {
				a.logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	c := &console{
		app: a,
		svc: a.newSession(),
		out: cmd.OutOrStdout(),
	}
	return c.run(ctx, cmd.InOrStdin())
}

// console is a line-oriented session shell.
type console struct {
	app *app
	svc *service.SessionService
	out io.Writer
}

// consoleCommand handles one command line. arg is the rest of the line.
type consoleCommand struct {
	usage string
	help  string
	run   func(c *console, ctx context.Context, arg string) error
}

// errQuit ends the session.
var errQuit = errors.New("quit")

var consoleCommands map[string]consoleCommand

func init() {
	consoleCommands = map[string]consoleCommand{
		"submit": {
			usage: "submit [text]",
			help:  "submit text, or the current request when empty",
			run:   (*console).submit,
		},
		"preset": {
			usage: "preset NAME",
			help:  "set the request to a preset (" + strings.Join(session.PresetNames(), ", ") + ")",
			run:   (*console).preset,
		},
		"context": {
			usage: "context [JSON]",
			help:  "set the context object sent with submit; empty clears it",
			run:   (*console).setContext,
		},
		"execute": {
			usage: "execute",
			help:  "execute under the held permit",
			run: func(c *console, ctx context.Context, _ string) error {
				return c.execute(ctx, true)
			},
		},
		"execute-without": {
			usage: "execute-without",
			help:  "execute with the invalid permit id",
			run: func(c *console, ctx context.Context, _ string) error {
				return c.execute(ctx, false)
			},
		},
		"status": {
			usage: "status",
			help:  "probe the decision service",
			run:   (*console).status,
		},
		"show": {
			usage: "show",
			help:  "show the session",
			run:   (*console).show,
		},
		"stats": {
			usage: "stats",
			help:  "show outcome tallies",
			run: func(c *console, _ context.Context, _ string) error {
				return c.app.renderer.Stats(c.svc.Stats().GetStats())
			},
		},
		"expect": {
			usage: "expect EXPR",
			help:  "check a CEL expression against the session",
			run:   (*console).expect,
		},
		"help": {
			usage: "help",
			help:  "show this list",
			run:   (*console).help,
		},
		"quit": {
			usage: "quit",
			help:  "end the session (also exit, EOF)",
			run: func(*console, context.Context, string) error {
				return errQuit
			},
		},
	}
	consoleCommands["exit"] = consoleCommands["quit"]
}

// run reads commands until quit, end of input or ctx is cancelled.
func (c *console) run(ctx context.Context, in io.Reader) error {
	// The reader exits at end of input or on the first line read after ctx
	// is done. A Scan blocked on an interactive terminal cannot be
	// interrupted and lives until the process exits.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.app.renderer.Textf("Session for %s. Type \"help\" for commands.", c.app.client.BaseURL())
	for {
		fmt.Fprint(c.out, consolePrompt)
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(c.out)
			return nil
		}

		if err := c.dispatch(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(c.out, c.app.renderer.Palette().Fail("error:"), err)
		}
	}
}

// dispatch runs one command line. Blank lines are ignored.
func (c *console) dispatch(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return nil
	}
	command, ok := consoleCommands[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown command %q (type \"help\")", name)
	}
	return command.run(c, ctx, strings.TrimSpace(arg))
}

func (c *console) submit(ctx context.Context, arg string) error {
	sess := c.svc.Session()
	request := arg
	if request == "" {
		request = sess.Request()
	}
	if _, err := c.svc.Submit(ctx, request, sess.Context()); err != nil {
		return err
	}
	return c.show(ctx, "")
}

func (c *console) preset(_ context.Context, arg string) error {
	request, ok := session.LookupPreset(arg)
	if !ok {
		return fmt.Errorf("unknown preset %q (want one of %s)", arg, strings.Join(session.PresetNames(), ", "))
	}
	c.svc.Session().SetRequest(request)
	c.app.renderer.Textf("request: %s", request)
	return nil
}

func (c *console) setContext(_ context.Context, arg string) error {
	if _, err := session.ParseContext(arg); err != nil {
		return err
	}
	c.svc.Session().SetContext(arg)
	if arg == "" {
		c.app.renderer.Textf("context cleared")
	}
	return nil
}

func (c *console) execute(ctx context.Context, usePermit bool) error {
	c.svc.Execute(ctx, usePermit)
	return c.show(ctx, "")
}

func (c *console) status(ctx context.Context, _ string) error {
	rep := c.app.probe(ctx)
	return c.app.renderer.Connectivity(c.app.client.BaseURL(), rep)
}

func (c *console) show(_ context.Context, _ string) error {
	return c.app.renderer.Session(c.svc.Session().Snapshot())
}

func (c *console) expect(_ context.Context, arg string) error {
	if arg == "" {
		return fmt.Errorf("usage: expect EXPR")
	}
	expectations, err := c.app.prepareExpectations([]string{arg})
	if err != nil {
		return err
	}
	evaluator, err := c.app.expectationEvaluator()
	if err != nil {
		return err
	}
	return c.app.renderer.Outcomes(evaluator.Check(expectations, c.app.facts(c.svc)))
}

func (c *console) help(context.Context, string) error {
	names := make([]string, 0, len(consoleCommands))
	for name := range consoleCommands {
		if name == "exit" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		command := consoleCommands[name]
		fmt.Fprintf(c.out, "  %-18s %s\n", command.usage, command.help)
	}
	return nil
}
