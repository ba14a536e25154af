package write

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/arduino/go-paths-helper"
	"github.com/spf13/cobra"

	"github.com/stagefile/stagefile/cmd/feedback"
	"github.com/stagefile/stagefile/cmd/i18n"
	"github.com/stagefile/stagefile/internal/config"
	"github.com/stagefile/stagefile/internal/journal"
	"github.com/stagefile/stagefile/pkg/stage"
)

func NewWriteCmd(cfg config.Configuration) *cobra.Command {
	var input string
	var modeStr string
	var overwriteInput bool
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "write <destination>",
		Short: "Atomically create or replace a file",
		Long: "Writes the input to <destination> so that concurrent readers never observe\n" +
			"partial content: a missing destination is claimed right away, an existing one\n" +
			"is replaced in a single rename once the new content is complete.",
		Example: "  " + os.Args[0] + " write --input report.pdf /srv/www/report.pdf\n" +
			"  generate-config | " + os.Args[0] + " write /etc/myapp/config.toml",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req := writeRequest{
				dest:           args[0],
				input:          input,
				mode:           modeStr,
				overwriteInput: overwriteInput,
				noJournal:      noJournal,
				stdin:          cmd.InOrStdin(),
			}
			res, err := writeHandler(cmd.Context(), cfg, req)
			if err != nil {
				feedback.FatalError(err, exitCodeFor(err))
			}
			feedback.PrintResult(res)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Source file to copy from (default: stdin)")
	cmd.Flags().StringVar(&modeStr, "mode", "", "Permission bits for the destination, in octal (e.g. 0600)")
	cmd.Flags().BoolVar(&overwriteInput, "overwrite-input", false, "Allow the destination to be the input file itself")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not record this write in the history journal")
	return cmd
}

func exitCodeFor(err error) feedback.ExitCode {
	if errors.Is(err, stage.ErrSameFile) || errors.Is(err, stage.ErrSourceNotSeekable) || errors.Is(err, errBadMode) {
		return feedback.ErrBadArgument
	}
	return feedback.ErrGeneric
}

var errBadMode = errors.New("invalid mode")

type writeRequest struct {
	dest           string
	input          string
	mode           string
	overwriteInput bool
	noJournal      bool
	stdin          io.Reader
}

func writeHandler(ctx context.Context, cfg config.Configuration, req writeRequest) (writeResult, error) {
	dest := paths.New(req.dest)
	if dest == nil {
		return writeResult{}, errors.New(i18n.Tr("missing destination path"))
	}

	// Default to stdin; a file input additionally goes through the guard
	// checks before the destination is touched.
	src := req.stdin
	if req.input != "" && req.input != "-" {
		srcPath := paths.New(req.input)
		if !req.overwriteInput {
			if err := stage.CheckDistinctFiles(srcPath, dest); err != nil {
				return writeResult{}, err
			}
		}
		in, err := srcPath.Open()
		if err != nil {
			return writeResult{}, err
		}
		defer in.Close()
		if err := stage.CheckByteSource(in); err != nil {
			return writeResult{}, err
		}
		src = in
	}

	var opts []stage.Option
	switch {
	case req.mode != "":
		mode, err := config.ParseMode(req.mode)
		if err != nil {
			return writeResult{}, fmt.Errorf("%w: %w", errBadMode, err)
		}
		opts = append(opts, stage.WithPermissions(mode))
	case cfg.DefaultMode() != 0:
		opts = append(opts, stage.WithPermissions(cfg.DefaultMode()))
	}

	w, err := stage.NewWriter(dest, opts...)
	if err != nil {
		return writeResult{}, err
	}
	defer func() { _ = w.Abort() }()

	op := journal.OpCreate
	if w.Replacing() {
		op = journal.OpReplace
	}

	// An interrupt must fail the session, not truncate it: a closed pipe
	// after Ctrl-C would otherwise look like a complete input and commit.
	n, err := io.Copy(w, interruptableReader{ctx: ctx, r: src})
	if err != nil {
		return writeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return writeResult{}, err
	}
	if err := w.Commit(); err != nil {
		return writeResult{}, err
	}

	if cfg.JournalEnabled() && !req.noJournal {
		// The write is already committed: a journal problem is worth a
		// warning but must not turn the operation into a failure.
		j := journal.New(cfg.JournalPath(), cfg.JournalMaxEntries())
		if err := j.Record(recordedPath(dest), op, n); err != nil {
			feedback.Warnf(i18n.Tr("Warning: cannot record the write in the journal: %v", err))
		}
	}

	return writeResult{Path: dest.String(), Op: op, Bytes: n}, nil
}

// interruptableReader fails the copy at the next read once the command
// context has been cancelled.
type interruptableReader struct {
	ctx context.Context
	r   io.Reader
}

func (r interruptableReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// recordedPath resolves dest against the working directory so the journal
// stays meaningful when read from elsewhere.
func recordedPath(dest *paths.Path) string {
	if dest.IsAbs() {
		return dest.String()
	}
	wd, err := paths.Getwd()
	if err != nil {
		return dest.String()
	}
	return wd.JoinPath(dest).String()
}

type writeResult struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Bytes int64  `json:"bytes"`
}

func (r writeResult) String() string {
	if r.Op == journal.OpReplace {
		return i18n.Tr("Replaced %s (%d bytes)", r.Path, r.Bytes)
	}
	return i18n.Tr("Created %s (%d bytes)", r.Path, r.Bytes)
}

func (r writeResult) Data() interface{} {
	return r
}
