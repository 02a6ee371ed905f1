package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	cfgpkg "github.com/KaramelBytes/titanic-analytics/internal/config"
	"github.com/KaramelBytes/titanic-analytics/internal/copilot"
)

const chatPrompt = "copilot> "

var chatView string

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the AI copilot in an interactive session",
	Long: `Start an interactive session with the AI copilot.

Questions go to the conversational backend; when it is unreachable the copilot
answers locally from the dataset figures. Type /help for commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		src, err := openSource(logger)
		if err != nil {
			return err
		}
		return runChatREPL(cmd, src, logger)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the AI copilot a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		src, err := openSource(logger)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		w := newChatWidget(ctx, src, logger, chatView, nil)
		msg, err := w.Send(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		printMessage(cmd.OutOrStdout(), msg)
		if w.Snapshot().Degraded {
			note(cmd.ErrOrStderr(), "⚠ Warning: backend unreachable, answered from local data")
		}
		return nil
	},
}

var tourCmd = &cobra.Command{
	Use:   "tour",
	Short: "Print the quick tour of the dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		src, err := openSource(logger)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		w := copilot.NewWidget(copilot.Options{Assistant: src, Timeouts: timeouts(), Logger: logger})
		out := cmd.OutOrStdout()
		if w.StartTour(ctx) == copilot.Fallback {
			note(out, "(built-in tour)")
		}
		for {
			tv := w.Snapshot().Tour
			if !tv.Open {
				return nil
			}
			printTourStep(out, tv)
			w.TourNext(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(tourCmd)
	for _, c := range []*cobra.Command{chatCmd, askCmd} {
		c.Flags().StringVar(&chatView, "view", copilot.ViewDashboard, "dashboard view the question is about")
	}
}

// loadStats gathers the figures the local responder quotes. Each slice is
// independent; a failed one keeps its default.
func loadStats(ctx context.Context, src api.StatsSource, logger *slog.Logger) copilot.Stats {
	var (
		info    *api.DatasetInfo
		summary api.Summary
		rates   *api.SurvivalRates
		model   *api.RegressionResult
	)
	var g errgroup.Group
	g.Go(func() (err error) {
		if info, err = src.Info(ctx); err != nil {
			logger.Debug("info unavailable for copilot stats", "error", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if summary, err = src.Summary(ctx); err != nil {
			logger.Debug("summary unavailable for copilot stats", "error", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if rates, err = src.SurvivalRates(ctx); err != nil {
			logger.Debug("survival rates unavailable for copilot stats", "error", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if model, err = src.Regression(ctx); err != nil {
			logger.Debug("regression unavailable for copilot stats", "error", err)
		}
		return nil
	})
	_ = g.Wait()
	return copilot.StatsFrom(info, summary, rates, model)
}

func newChatWidget(ctx context.Context, src api.Source, logger *slog.Logger, view string, navigate func(string)) *copilot.Widget {
	var stats *copilot.Stats
	return copilot.NewWidget(copilot.Options{
		Assistant: src,
		Timeouts:  timeouts(),
		Stats: func() copilot.Stats {
			if stats == nil {
				s := loadStats(ctx, src, logger)
				stats = &s
			}
			return *stats
		},
		Navigate: navigate,
		Logger:   logger,
		View:     view,
	})
}

// chatSession tracks which log entries have been printed.
type chatSession struct {
	w    *copilot.Widget
	out  io.Writer
	seen int
}

func (s *chatSession) flush() {
	msgs := s.w.Log().Messages()
	for _, m := range msgs[s.seen:] {
		printMessage(s.out, m)
	}
	s.seen = len(msgs)
}

// settle runs queued transitions (navigation pulse, canned questions) as
// they fall due.
func (s *chatSession) settle(ctx context.Context) {
	for {
		at, ok := s.w.NextDeadline()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(at)):
		}
		s.w.Tick(ctx, at)
		s.flush()
	}
}

func runChatREPL(cmd *cobra.Command, src api.Source, logger *slog.Logger) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	historyFile := ""
	if dir, err := cfgpkg.Dir(); err == nil {
		historyFile = filepath.Join(dir, "chat_history")
	}

	views := make([]readline.PrefixCompleterInterface, len(copilot.Views))
	for i, v := range copilot.Views {
		views[i] = readline.PcItem(v.ID)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      chatPrompt,
		HistoryFile: historyFile,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("/help"),
			readline.PcItem("/view", views...),
			readline.PcItem("/actions"),
			readline.PcItem("/do"),
			readline.PcItem("/tour"),
			readline.PcItem("/next"),
			readline.PcItem("/prev"),
			readline.PcItem("/skip"),
			readline.PcItem("/test"),
			readline.PcItem("/status"),
			readline.PcItem("/quit"),
		),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s := &chatSession{out: out}
	s.w = newChatWidget(ctx, src, logger, chatView, func(view string) {
		if v, ok := copilot.LookupView(view); ok {
			note(out, fmt.Sprintf("→ %s %s (%s)", v.Icon, v.Label, v.Subtitle))
		}
	})
	s.w.Open(ctx)
	s.flush()
	printStatus(out, s.w.Snapshot())
	fmt.Fprintln(out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := handleChatCommand(ctx, s, line); quit {
				break
			}
			continue
		}
		if _, err := s.w.Send(ctx, line); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Error: "+err.Error()))
			continue
		}
		s.flush()
		fmt.Fprintln(out)
	}
	return nil
}

func handleChatCommand(ctx context.Context, s *chatSession, line string) bool {
	parts := strings.Fields(line)
	out := s.out
	switch strings.ToLower(parts[0]) {
	case "/quit", "/exit":
		return true

	case "/help":
		printChatHelp(out)

	case "/status":
		printStatus(out, s.w.Snapshot())

	case "/view":
		if len(parts) < 2 {
			fmt.Fprintf(out, "Current view: %s\n", s.w.View())
			return false
		}
		if _, ok := copilot.LookupView(parts[1]); !ok {
			fmt.Fprintf(out, "Unknown view %q\n", parts[1])
			return false
		}
		s.w.SetView(ctx, parts[1])
		printActions(out, s.w.Snapshot())

	case "/actions":
		printActions(out, s.w.Snapshot())

	case "/do":
		if len(parts) < 2 {
			fmt.Fprintln(out, "Usage: /do <number> | /do <action>")
			return false
		}
		descriptor := parts[1]
		if n, err := strconv.Atoi(parts[1]); err == nil {
			actions := s.w.Snapshot().Actions
			if n < 1 || n > len(actions) {
				fmt.Fprintf(out, "No quick action %d\n", n)
				return false
			}
			descriptor = actions[n-1].Action
		} else {
			descriptor = strings.TrimSpace(strings.TrimPrefix(line, parts[0]))
		}
		if err := s.w.Trigger(ctx, descriptor); err != nil {
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
			return false
		}
		s.flush()
		s.settle(ctx)
		showTour(out, s.w)

	case "/tour":
		if s.w.StartTour(ctx) == copilot.Fallback {
			note(out, "(built-in tour)")
		}
		showTour(out, s.w)

	case "/next":
		s.w.TourNext(ctx)
		showTour(out, s.w)

	case "/prev":
		s.w.TourPrev(ctx)
		showTour(out, s.w)

	case "/skip":
		s.w.TourClose()

	case "/test":
		s.w.TestConnection(ctx)
		s.flush()

	default:
		fmt.Fprintf(out, "Unknown command: %s (type /help)\n", parts[0])
	}
	return false
}

func printChatHelp(w io.Writer) {
	fmt.Fprintln(w, `Commands:
  /view [name]     Show or switch the dashboard view (dashboard, analysis, regression, data)
  /actions         List quick actions for the current view
  /do <n|action>   Run a quick action by number or descriptor (e.g. navigate:data)
  /tour            Start the quick tour; /next, /prev, /skip to move through it
  /test            Test the backend connection
  /status          Show the connection status
  /quit            Leave the chat`)
}

func printMessage(w io.Writer, m copilot.Message) {
	if m.Role == copilot.RoleUser {
		fmt.Fprintf(w, "%s %s\n", userStyle.Render("you ›"), m.Content)
		return
	}
	label := assistantStyle.Render(copilot.TypeIcon(m.Type) + " copilot ›")
	fmt.Fprintf(w, "%s\n%s\n", label, copilot.Terminal(m.Content))
	for _, sg := range m.Suggestions {
		fmt.Fprintf(w, "  → %s %s\n", sg.Text, mutedStyle.Render("("+sg.Action+")"))
	}
}

func printStatus(w io.Writer, snap copilot.Snapshot) {
	status := snap.Status()
	if snap.Degraded && snap.ConnError != "" {
		status += ": " + snap.ConnError
	}
	note(w, status)
}

func printActions(w io.Writer, snap copilot.Snapshot) {
	v, _ := copilot.LookupView(snap.View)
	heading(w, fmt.Sprintf("Quick actions for %s (%s)", v.Label, snap.ActionsOrigin))
	for i, a := range snap.Actions {
		fmt.Fprintf(w, "  %d. %s %s %s\n", i+1, a.Icon, a.Label, mutedStyle.Render(a.Action))
	}
}

func showTour(w io.Writer, cw *copilot.Widget) {
	if tv := cw.Snapshot().Tour; tv.Open {
		printTourStep(w, tv)
	}
}

func printTourStep(w io.Writer, tv copilot.TourView) {
	heading(w, fmt.Sprintf("%s Step %d of %d: %s", copilot.SectionIcon(tv.Step.Section), tv.Index+1, tv.Total, tv.Step.Title))
	fmt.Fprintln(w, copilot.Terminal(tv.Step.Description))
}
