package history

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/stagefile/stagefile/cmd/feedback"
	"github.com/stagefile/stagefile/cmd/i18n"
	"github.com/stagefile/stagefile/internal/config"
	"github.com/stagefile/stagefile/internal/journal"
	"github.com/stagefile/stagefile/pkg/tablestyle"
)

func NewHistoryCmd(cfg config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the journal of committed writes",
	}
	cmd.AddCommand(
		newListCmd(cfg),
		newClearCmd(cfg),
	)
	return cmd
}

func newListCmd(cfg config.Configuration) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the recorded writes, oldest first",
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := journal.New(cfg.JournalPath(), cfg.JournalMaxEntries()).List()
			if err != nil {
				feedback.FatalError(err, feedback.ErrGeneric)
			}
			feedback.PrintResult(historyResult{Entries: entries})
		},
	}
}

func newClearCmd(cfg config.Configuration) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget all recorded writes",
		Run: func(cmd *cobra.Command, args []string) {
			if err := journal.New(cfg.JournalPath(), cfg.JournalMaxEntries()).Clear(); err != nil {
				feedback.FatalError(err, feedback.ErrGeneric)
			}
			feedback.Print(i18n.Tr("Write history cleared."))
		},
	}
}

type historyResult struct {
	Entries []journal.Entry `json:"entries"`
}

func (r historyResult) String() string {
	if len(r.Entries) == 0 {
		return i18n.Tr("No writes recorded.")
	}
	t := table.NewWriter()
	t.SetStyle(tablestyle.Clean)
	t.AppendHeader(table.Row{"TIME", "OPERATION", "BYTES", "PATH"})

	for _, e := range r.Entries {
		t.AppendRow(table.Row{
			e.Stamp.Local().Format(time.DateTime),
			e.Op,
			e.Bytes,
			e.Path,
		})
	}
	return t.Render()
}

func (r historyResult) Data() interface{} {
	return r
}
