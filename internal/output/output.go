// Package output renders session status, model listings and chat answers.
// Status and listings support text, JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bimmerbailey/advisor/internal/session"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteStatus outputs a session status snapshot in the configured format.
func (wr *Writer) WriteStatus(st session.Status) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(st)
	case FormatTable:
		return wr.writeStatusTable(st)
	default:
		return wr.writeStatusText(st)
	}
}

func (wr *Writer) writeStatusText(st session.Status) error {
	available := "no"
	if st.Available {
		available = "yes (" + st.ProviderID + ")"
	}

	fmt.Fprintf(wr.w, "State:     %s\n", st.State)
	fmt.Fprintf(wr.w, "Available: %s\n", available)
	fmt.Fprintf(wr.w, "Language:  %s\n", st.Language)
	fmt.Fprintf(wr.w, "Mode:      %s\n",
		ModeSummary(session.Mode{Detailed: st.Detailed, Context: st.Context, Stream: st.Stream}))
	fmt.Fprintf(wr.w, "History:   %d entries\n", st.HistoryLength)

	for _, p := range st.Providers {
		fmt.Fprintf(wr.w, "  %-12s reachable=%-5t ok=%d failed=%d\n",
			p.ID, p.Reachable, p.Successes, p.Failures)
	}
	return nil
}

func (wr *Writer) writeStatusTable(st session.Status) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tACTIVE\tREACHABLE\tSUCCESSES\tFAILURES")
	fmt.Fprintln(tw, "--------\t------\t---------\t---------\t--------")

	for _, p := range st.Providers {
		active := ""
		if st.Available && p.ID == st.ProviderID {
			active = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\n", p.ID, active, p.Reachable, p.Successes, p.Failures)
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(wr.w, "\nstate=%s language=%s mode=%s context=%s stream=%s history=%d\n",
		st.State, st.Language, VerbosityLabel(st.Detailed), OnOff(st.Context), OnOff(st.Stream), st.HistoryLength)
	return err
}

// ModelRow is one model served by an ollama provider.
type ModelRow struct {
	Provider   string    `json:"provider"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// WriteModels outputs a model listing in the configured format.
func (wr *Writer) WriteModels(rows []ModelRow) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(rows)
	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tMODEL\tSIZE\tMODIFIED")
		fmt.Fprintln(tw, "--------\t-----\t----\t--------")
		for _, r := range rows {
			modified := ""
			if !r.ModifiedAt.IsZero() {
				modified = r.ModifiedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Provider, r.Name, humanSize(r.Size), modified)
		}
		return tw.Flush()
	default:
		for _, r := range rows {
			fmt.Fprintf(wr.w, "%s\t%s\n", r.Provider, r.Name)
		}
		return nil
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ModeSummary describes a session mode as shown by status and chat, e.g.
// "detailed, context on, stream off".
func ModeSummary(m session.Mode) string {
	return fmt.Sprintf("%s, context %s, stream %s", VerbosityLabel(m.Detailed), OnOff(m.Context), OnOff(m.Stream))
}

// VerbosityLabel returns "detailed" or "concise".
func VerbosityLabel(detailed bool) string {
	if detailed {
		return "detailed"
	}
	return "concise"
}

// OnOff returns "on" or "off".
func OnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
