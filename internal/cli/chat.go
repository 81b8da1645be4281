package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/campus-interview-bot/internal/app"
	"github.com/garyellow/campus-interview-bot/internal/bot"
	"github.com/garyellow/campus-interview-bot/internal/config"
	"github.com/garyellow/campus-interview-bot/internal/dialog"
	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

type chatOptions struct {
	local       bool
	scriptsPath string
	verbose     bool
	plain       bool
}

func loadScripts(path string) (*dialog.Scripts, error) {
	if path == "" {
		return dialog.DefaultScripts()
	}
	return dialog.LoadScripts(path)
}

func runChat(cmd *cobra.Command, opts *chatOptions) error {
	cfg, err := config.LoadForMode(config.CLIMode)
	if err != nil {
		return err
	}
	if opts.local {
		cfg.NLU.LocalEnabled = true
	}

	level := "error"
	if opts.verbose {
		level = "debug"
	}
	log := logger.NewWithOptions(logger.Options{Level: level, Format: "text", Writer: cmd.ErrOrStderr()})

	scripts, err := loadScripts(opts.scriptsPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	recognizer, _ := app.NewRecognizer(ctx, cfg.NLU, nil, log)

	s := &chatSession{
		engine: dialog.NewEngine(scripts, recognizer, dialog.Config{
			MaxRetries: cfg.Bot.DialogMaxRetries,
			Logger:     log,
		}),
		recognizer: recognizer,
		maxInput:   cfg.Bot.MaxInputLength,
		out:        cmd.OutOrStdout(),
		theme:      newTheme(opts.plain),
	}
	return s.run(ctx, cmd.InOrStdin())
}

// chatSession is one terminal conversation.
type chatSession struct {
	engine     *dialog.Engine
	recognizer nlu.Recognizer
	maxInput   int
	out        io.Writer
	theme      theme
	state      dialog.State
}

func (s *chatSession) run(ctx context.Context, in io.Reader) error {
	if !s.recognizer.IsConfigured() {
		s.hint("No recognizer configured. Set an LLM API key or pass --local.")
	}
	if err := s.start(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(s.out, s.theme.user.Render("you> "))
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/state":
			s.printState()
			continue
		case "/restart":
			if err := s.start(ctx); err != nil {
				return err
			}
			continue
		}

		text := bot.SanitizeInput(line, s.maxInput)
		if text == "" {
			continue
		}
		reply, next, err := s.engine.Step(ctx, s.state, text)
		if err != nil {
			return fmt.Errorf("dialog: %w", err)
		}
		s.state = next
		s.print(reply)
		if s.state.Done() {
			s.hint("(conversation ended; say anything to talk again, or /quit)")
		}
	}
}

func (s *chatSession) start(ctx context.Context) error {
	reply, st, err := s.engine.Begin(ctx, s.engine.Scripts().Start, nil)
	if err != nil {
		return fmt.Errorf("dialog: %w", err)
	}
	s.state = st
	s.print(reply)
	return nil
}

func (s *chatSession) print(reply dialog.Reply) {
	for _, msg := range reply.Messages {
		_, _ = fmt.Fprintln(s.out, s.theme.bot.Render("bot> "+msg))
	}
	if reply.QuickReply == dialog.QuickReplyYesNo {
		s.hint("(yes / no)")
	}
}

func (s *chatSession) hint(text string) {
	_, _ = fmt.Fprintln(s.out, s.theme.hint.Render(text))
}

func (s *chatSession) printState() {
	st := s.state
	_, _ = fmt.Fprintf(s.out, "%s %s #%d (%s, retries %d)\n",
		s.theme.label.Render("position:"), st.Topic, st.Step, st.Phase, st.Retries)
	for _, slot := range nlu.Slots {
		if v := st.Profile.Get(slot); v != "" {
			_, _ = fmt.Fprintf(s.out, "  %s %s\n", s.theme.label.Render(string(slot)+":"), v)
		}
	}
}
