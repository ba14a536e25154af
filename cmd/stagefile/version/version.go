package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagefile/stagefile/cmd/feedback"
)

const ProgramName = "stagefile"

func NewVersionCmd(clientVersion string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of " + ProgramName,
		Run: func(cmd *cobra.Command, args []string) {
			feedback.PrintResult(versionResult{
				Name:    ProgramName,
				Version: clientVersion,
			})
		},
	}
}

type versionResult struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (r versionResult) String() string {
	return fmt.Sprintf("%s version %s", r.Name, r.Version)
}

func (r versionResult) Data() interface{} {
	return r
}
