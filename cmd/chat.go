package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/advisor/internal/output"
	"github.com/bimmerbailey/advisor/internal/prompt"
	"github.com/bimmerbailey/advisor/internal/session"
	"github.com/bimmerbailey/advisor/internal/watch"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive advising session",
	Long: `Start an interactive conversation with the advisor.

Providers are checked once at startup; use /check to check again. Recent
turns are sent with each question while context is on. Type /help for the
list of commands.

When a config file is in use it is watched, and changes to the session
language and mode apply without restarting.

Examples:
  advisor chat
  advisor chat --lang en --concise
  advisor chat --profile "Grade 11, GPA 3.9, wants to study biology in the US"`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("lang", "", "answer language as a BCP 47 tag (default from session.language)")
	chatCmd.Flags().Bool("concise", false, "ask for short answers")
	chatCmd.Flags().String("profile", "", "student background sent with every question")
	chatCmd.Flags().Bool("no-watch", false, "do not reload settings when the config file changes")

	rootCmd.AddCommand(chatCmd)
}

const chatHelp = `Commands:
  /check                   check providers again
  /status                  show session status
  /clear                   forget the conversation so far
  /lang [tag]              show or set the answer language (e.g. en, zh-CN)
  /mode detailed|concise   set answer length
  /context on|off          send recent turns with each question
  /stream on|off           stream answers as they arrive
  /profile [text|clear]    show, set or clear your background
  /help                    show this help
  /quit                    leave (also /exit or Ctrl-D)`

func runChat(cmd *cobra.Command, args []string) error {
	lang, _ := cmd.Flags().GetString("lang")
	concise, _ := cmd.Flags().GetBool("concise")
	profile, _ := cmd.Flags().GetString("profile")
	noWatch, _ := cmd.Flags().GetBool("no-watch")

	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	if lang != "" {
		if err := sess.SetLanguage(lang); err != nil {
			return err
		}
	}
	if concise {
		m := sess.Mode()
		m.Detailed = false
		sess.SetMode(m)
	}

	out := cmd.OutOrStdout()
	colorize := output.ShouldColorize(output.ParseColorMode(viper.GetString("color")), out)
	r := newREPL(sess, out, output.NewStyles(colorize), newPrinterFactory(cmd))
	r.profile = strings.TrimSpace(profile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if path := viper.ConfigFileUsed(); path != "" && !noWatch {
		w, err := watch.New(watch.Options{
			FilePath: path,
			OnChange: reloadSettings(sess, logger),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	fmt.Fprintln(out, r.styles.Info.Render("College advisor. Type /help for commands."))
	r.check(ctx)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := chatHistoryFile()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer saveChatHistory(line, historyFile, logger)

	for {
		input, err := line.Prompt("advisor> ")
		if err != nil {
			// Ctrl-C at the prompt, Ctrl-D or a closed stdin
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				logger.Warn("reading input failed", "error", err)
			}
			fmt.Fprintln(out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if !r.handle(ctx, input) {
			return nil
		}
	}
}

// repl runs one line of chat input at a time against a session.
type repl struct {
	sess       *session.Session
	out        io.Writer
	styles     output.Styles
	newPrinter func() *output.StreamPrinter

	// profile is sent as extra context with every question.
	profile string
}

func newREPL(sess *session.Session, out io.Writer, styles output.Styles, newPrinter func() *output.StreamPrinter) *repl {
	return &repl{sess: sess, out: out, styles: styles, newPrinter: newPrinter}
}

// handle runs a slash command or sends a question. It reports whether the
// loop should continue.
func (r *repl) handle(ctx context.Context, input string) bool {
	if strings.HasPrefix(input, "/") {
		cont, err := r.handleCommand(ctx, input)
		if err != nil {
			r.printError(err)
		}
		return cont
	}

	// Ctrl-C while an answer streams cancels only that answer.
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	r.send(sendCtx, input)
	return true
}

func (r *repl) send(ctx context.Context, text string) {
	printer := r.newPrinter()
	answer, err := r.sess.SendMessage(ctx, text, r.profile, printer.OnIncrement)
	if err != nil {
		printer.Abort()
		switch {
		case errors.Is(err, session.ErrServiceUnavailable):
			r.printError(errors.New("no provider is reachable; run /check once the network is back"))
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(r.out, r.styles.Warning.Render("[Cancelled]"))
		default:
			r.printError(err)
		}
		return
	}
	printer.Finish(answer)
}

func (r *repl) handleCommand(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return false, nil

	case "/help":
		fmt.Fprintln(r.out, chatHelp)

	case "/check":
		r.check(ctx)

	case "/status":
		return true, output.New(r.out, output.FormatText).WriteStatus(r.sess.Status())

	case "/clear":
		r.sess.ClearHistory()
		r.printInfo("Conversation cleared.")

	case "/lang":
		if arg != "" {
			if err := r.sess.SetLanguage(arg); err != nil {
				return true, err
			}
		}
		r.printInfo("Answer language: " + prompt.LanguageName(r.sess.Settings().Language))

	case "/mode":
		if arg == "" {
			r.printInfo("Mode: " + output.ModeSummary(r.sess.Mode()))
			return true, nil
		}
		v, err := prompt.ParseVerbosity(arg)
		if err != nil {
			return true, err
		}
		m := r.sess.Mode()
		m.Detailed = v == prompt.VerbosityDetailed
		r.sess.SetMode(m)
		r.printInfo("Mode: " + output.ModeSummary(m))

	case "/context", "/stream":
		on, err := parseOnOff(arg)
		if err != nil {
			return true, fmt.Errorf("%s: %w", name, err)
		}
		m := r.sess.Mode()
		if name == "/context" {
			m.Context = on
		} else {
			m.Stream = on
		}
		r.sess.SetMode(m)
		r.printInfo("Mode: " + output.ModeSummary(m))

	case "/profile":
		switch strings.ToLower(arg) {
		case "":
			if r.profile == "" {
				r.printInfo("No profile set.")
			} else {
				r.printInfo("Profile: " + r.profile)
			}
		case "clear":
			r.profile = ""
			r.printInfo("Profile cleared.")
		default:
			r.profile = arg
			r.printInfo("Profile set.")
		}

	default:
		return true, fmt.Errorf("unknown command %s (type /help)", name)
	}
	return true, nil
}

// check runs an availability check and reports the result.
func (r *repl) check(ctx context.Context) {
	if r.sess.CheckAvailability(ctx) {
		fmt.Fprintln(r.out, r.styles.Success.Render("Connected to "+r.sess.Status().ProviderID+"."))
		return
	}
	r.printError(errors.New("no provider is reachable; questions are disabled until /check succeeds"))
}

func (r *repl) printInfo(msg string) {
	fmt.Fprintln(r.out, r.styles.Info.Render(msg))
}

func (r *repl) printError(err error) {
	fmt.Fprintf(r.out, "%s %v\n", r.styles.Error.Render("[Error]"), err)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

// reloadSettings re-reads the config file and applies its session language
// and mode, replacing changes made with /lang and /mode.
func reloadSettings(sess *session.Session, logger *slog.Logger) func() error {
	return func() error {
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		settings, err := session.SettingsFromConfig(cfg.Session)
		if err != nil {
			return err
		}

		if err := sess.SetLanguage(settings.Language.String()); err != nil {
			return err
		}
		sess.SetMode(session.Mode{
			Detailed: settings.Verbosity == prompt.VerbosityDetailed,
			Context:  settings.ContextEnabled,
			Stream:   settings.StreamEnabled,
		})
		logger.Info("session settings reloaded",
			"language", settings.Language.String(),
			"verbosity", settings.Verbosity,
		)
		return nil
	}
}

// chatHistoryFile returns where REPL input history is kept.
func chatHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "advisor", "chat_history")
}

func saveChatHistory(line *liner.State, path string, logger *slog.Logger) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logger.Debug("cannot create history directory", "error", err)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		logger.Debug("cannot save chat history", "error", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		logger.Debug("cannot save chat history", "error", err)
	}
}
