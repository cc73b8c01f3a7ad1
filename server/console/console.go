// Package console implements the operator-facing admin REPL: a
// command-line loop, backed by go-prompt when attached to a real
// terminal, that lets an operator pause and unpause the universe, adjust
// timescale, and ban players (spec.md §6 external
// interfaces; spec.md §9 design notes call out an admin console as
// ambient tooling every deployment needs).
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/sandboxverse/universe/server/universe"
)

const (
	defaultPromptPrefix = "> "
	maxHistoryEntries   = 128
)

// Command is one admin REPL verb.
type Command struct {
	Name    string
	Usage   string
	Run     func(srv *universe.UniverseServer, log *slog.Logger, args []string) error
}

var commands []Command

func init() {
	commands = []Command{
	{Name: "pause", Usage: "pause", Run: func(srv *universe.UniverseServer, log *slog.Logger, _ []string) error {
		srv.Pause()
		log.Info("universe paused")
		return nil
	}},
	{Name: "unpause", Usage: "unpause", Run: func(srv *universe.UniverseServer, log *slog.Logger, _ []string) error {
		srv.Unpause()
		log.Info("universe unpaused")
		return nil
	}},
	{Name: "timescale", Usage: "timescale <factor>", Run: func(srv *universe.UniverseServer, log *slog.Logger, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("usage: timescale <factor>")
		}
		f, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid factor: %w", err)
		}
		srv.SetTimescale(f)
		log.Info("timescale set", "factor", f)
		return nil
	}},
	{Name: "ban", Usage: "ban <uuid|ip> <reason>", Run: func(srv *universe.UniverseServer, log *slog.Logger, args []string) error {
		if len(args) < 2 {
			return fmt.Errorf("usage: ban <uuid|ip> <reason>")
		}
		if err := srv.BanOffline(args[0], strings.Join(args[1:], " "), 0); err != nil {
			return err
		}
		log.Info("banned", "target", args[0])
		return nil
	}},
	{Name: "help", Usage: "help", Run: func(_ *universe.UniverseServer, log *slog.Logger, _ []string) error {
		for _, c := range commands {
			log.Info(c.Usage)
		}
		return nil
	}},
	}
}

func byName(name string) (Command, bool) {
	for _, c := range commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Console reads operator commands from an io.Reader (os.Stdin by default)
// and executes them against srv.
type Console struct {
	srv     *universe.UniverseServer
	log     *slog.Logger
	reader  io.Reader
	history []string
}

// New returns a Console bound to srv, logging through log (or
// slog.Default if nil).
func New(srv *universe.UniverseServer, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{srv: srv, log: log, reader: os.Stdin}
}

// WithReader overrides the input source, for tests that don't want an
// interactive terminal.
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// Run consumes commands until ctx is cancelled or the input reader hits
// EOF. When the reader is os.Stdin it runs the interactive go-prompt loop
// with tab completion; any other reader set through WithReader is consumed
// by a plain line scanner (used by tests).
func (c *Console) Run(ctx context.Context) {
	if c.reader != os.Stdin {
		c.runScanner(ctx)
		return
	}
	c.runInteractive(ctx)
}

func (c *Console) runScanner(ctx context.Context) {
	scanner := bufio.NewScanner(c.reader)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.log.Error("console input error", "err", err)
			}
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.execute(line)
	}
}

func (c *Console) runInteractive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := prompt.Input(defaultPromptPrefix, c.complete,
			prompt.OptionTitle("Universe Console"),
			prompt.OptionHistory(c.history),
			prompt.OptionPrefix(defaultPromptPrefix),
			prompt.OptionCompletionOnDown(),
			prompt.OptionMaxSuggestion(12),
		)

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c.execute(line)
	}
}

func (c *Console) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	c.history = append(c.history, line)
	if len(c.history) > maxHistoryEntries {
		c.history = c.history[len(c.history)-maxHistoryEntries:]
	}

	cmd, ok := byName(fields[0])
	if !ok {
		c.log.Error("unknown command", "command", fields[0])
		return
	}
	if err := cmd.Run(c.srv, c.log, fields[1:]); err != nil {
		c.log.Error("command failed", "command", fields[0], "err", err)
	}
}

func (c *Console) complete(doc prompt.Document) []prompt.Suggest {
	word := doc.GetWordBeforeCursor()
	suggestions := make([]prompt.Suggest, 0, len(commands))
	for _, cmd := range commands {
		suggestions = append(suggestions, prompt.Suggest{Text: cmd.Name, Description: cmd.Usage})
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Text < suggestions[j].Text })
	return prompt.FilterHasPrefix(suggestions, word, true)
}
