package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/service/session"
	"github.com/sandevgo/docqa/internal/service/ui"
	"github.com/sandevgo/docqa/pkg/log"
)

// Asker is the driver-facing side of a conversation session.
type Asker interface {
	ID() string
	Ask(ctx context.Context, raw string) (string, error)
}

type ReadLine struct {
	sess   Asker
	router core.CmdRouter
	rl     *readline.Instance
}

func NewReadLine(sess Asker, router core.CmdRouter, runtimePath string) (*ReadLine, error) {
	if err := os.MkdirAll(runtimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ui.PromptStyle.Render("? "),
		HistoryFile:     filepath.Join(runtimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		sess:   sess,
		router: router,
		rl:     rl,
	}, nil
}

// Start runs the question loop until exit, EOF, Ctrl+C on an empty line or ctx is done.
func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Str("session", r.sess.ID()).Msg("chat started, type 'exit' to quit or /help for commands")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		out, quit := r.handle(ctx, line)
		if quit {
			return nil
		}
		if out != "" {
			fmt.Fprintln(r.rl.Stdout(), out)
		}
	}
}

// handle answers one input line. quit is true for the exit words.
func (r *ReadLine) handle(ctx context.Context, line string) (out string, quit bool) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return "", false
	case "exit", "quit":
		return "", true
	}

	if r.router != nil {
		if res, ok := r.router.Execute(ctx, r.sess.ID(), line); ok {
			return res, false
		}
	}

	reply, err := r.sess.Ask(ctx, line)
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("turn failed")
		return ui.ErrorStyle.Render("Error: " + session.Describe(err)), false
	}
	return reply + "\n", false
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
