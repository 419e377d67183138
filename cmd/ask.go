package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/advisor/internal/output"
	"github.com/bimmerbailey/advisor/internal/session"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the advisor a single question",
	Long: `Ask the advisor one question and print the answer.

Providers are checked first; the question is only sent when one is
reachable. Answers stream to the terminal as they arrive and are rendered
as markdown once complete.

Examples:
  advisor ask "How do I choose between a liberal arts college and a university?"
  advisor ask --lang en --concise "What is early decision?"
  advisor ask --context "IB 38, interested in economics" "Which UK schools fit me?"
  advisor ask --format json --no-stream "List three safety schools in Ohio"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("context", "c", "", "extra background sent with the question (grades, scores, interests)")
	askCmd.Flags().String("lang", "", "answer language as a BCP 47 tag (default from session.language)")
	askCmd.Flags().Bool("concise", false, "ask for a short answer")
	askCmd.Flags().Bool("no-stream", false, "wait for the whole answer instead of streaming")

	rootCmd.AddCommand(askCmd)
}

// askResult is the JSON shape of an answered question.
type askResult struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
	Answer   string `json:"answer"`
	Provider string `json:"provider"`
	Language string `json:"language"`
	Detailed bool   `json:"detailed"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	extra, _ := cmd.Flags().GetString("context")
	lang, _ := cmd.Flags().GetString("lang")
	concise, _ := cmd.Flags().GetBool("concise")
	noStream, _ := cmd.Flags().GetBool("no-stream")

	format := output.ParseFormat(viper.GetString("format"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := newSession(cfg, newLogger())
	if err != nil {
		return err
	}

	if lang != "" {
		if err := sess.SetLanguage(lang); err != nil {
			return err
		}
	}
	mode := sess.Mode()
	if concise {
		mode.Detailed = false
	}
	// JSON output has nothing to stream to.
	if noStream || format == output.FormatJSON {
		mode.Stream = false
	}
	sess.SetMode(mode)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !sess.CheckAvailability(ctx) {
		return fmt.Errorf("%w%s", session.ErrServiceUnavailable, providerHelp)
	}

	out := cmd.OutOrStdout()
	var printer *output.StreamPrinter
	if format != output.FormatJSON {
		printer = newPrinterFactory(cmd)()
	}

	var onIncrement func(fragment, accumulated string)
	if printer != nil {
		onIncrement = printer.OnIncrement
	}

	answer, err := sess.SendMessage(ctx, question, extra, onIncrement)
	if err != nil {
		if printer != nil {
			printer.Abort()
		}
		return err
	}

	if format == output.FormatJSON {
		st := sess.Status()
		writer := output.New(out, output.FormatJSON)
		return writer.WriteJSON(askResult{
			Question: question,
			Context:  extra,
			Answer:   answer,
			Provider: answeringProvider(st),
			Language: st.Language,
			Detailed: st.Detailed,
		})
	}

	printer.Finish(answer)
	return nil
}

// newPrinterFactory returns a constructor of stream printers for the
// command's output. Markdown is rendered only when writing to a terminal
// with colour enabled.
func newPrinterFactory(cmd *cobra.Command) func() *output.StreamPrinter {
	out := cmd.OutOrStdout()
	width := output.TerminalWidth(out)

	var md *output.MarkdownRenderer
	if output.IsTerminal(out) && output.ShouldColorize(output.ParseColorMode(viper.GetString("color")), out) {
		wrap := width
		if wrap <= 0 || wrap > 100 {
			wrap = 100
		}
		r, err := output.NewMarkdownRenderer(wrap, viper.GetString("markdown_style"))
		if err == nil {
			md = r
		}
	}
	return func() *output.StreamPrinter {
		return output.NewStreamPrinter(out, md, width)
	}
}

// answeringProvider returns the provider that answered the last message: the
// one with a success recorded, since a fresh session sends only once.
func answeringProvider(st session.Status) string {
	for _, p := range st.Providers {
		if p.Successes > 0 {
			return p.ID
		}
	}
	return st.ProviderID
}
