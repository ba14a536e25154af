package feedback

import (
	"errors"
	"io"
)

// OutputStreamsResult carries the output accumulated on the out and err
// streams while producing a structured result.
type OutputStreamsResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Empty reports whether no output was accumulated.
func (r *OutputStreamsResult) Empty() bool {
	return r.Stdout == "" && r.Stderr == ""
}

func getOutputStreamResult() *OutputStreamsResult {
	return &OutputStreamsResult{
		Stdout: bufferOut.String(),
		Stderr: bufferErr.String(),
	}
}

// DirectStreams returns the raw output writers, for commands that must
// bypass the structured output machinery (like shell completion scripts).
// It is available only in Text format.
func DirectStreams() (io.Writer, io.Writer, error) {
	if format != Text {
		return nil, nil, errors.New("only available in text format")
	}
	return stdOut, stdErr, nil
}
