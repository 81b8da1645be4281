package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/campus-interview-bot/internal/buildinfo"
)

func newValidateCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "validate [scripts.yaml...]",
		Short: "Check topic scripts for broken transitions",
		Long: `validate loads each script table and reports the first problems found:
unknown transition targets, confirm steps without both branches, topics
that never end, and prompts that do not parse.

Without arguments the built-in table is checked.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args, newTheme(plain))
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "disable colors")
	return cmd
}

func runValidate(out io.Writer, paths []string, th theme) error {
	if len(paths) == 0 {
		paths = []string{""}
	}

	var failed int
	for _, path := range paths {
		name := path
		if name == "" {
			name = "built-in scripts"
		}

		scripts, err := loadScripts(path)
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(out, "%s %s\n", th.failed.Render("FAIL"), name)
			for _, line := range strings.Split(err.Error(), "\n") {
				_, _ = fmt.Fprintf(out, "     %s\n", line)
			}
			continue
		}

		_, _ = fmt.Fprintf(out, "%s %s\n", th.ok.Render("OK  "), name)
		for _, topic := range scripts.TopicNames() {
			d, err := scripts.Topic(topic)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "     %-16s %d steps\n", topic, len(d.Steps()))
		}
	}

	if failed > 0 {
		return errors.New("script validation failed")
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			version := buildinfo.Version
			if version == "" {
				version = "dev"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "campus-interview-bot %s", version)
			if buildinfo.Commit != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), " (%s", buildinfo.Commit)
				if buildinfo.BuildDate != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), ", %s", buildinfo.BuildDate)
				}
				_, _ = fmt.Fprint(cmd.OutOrStdout(), ")")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
		},
	}
}
