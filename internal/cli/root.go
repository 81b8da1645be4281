// Package cli implements the chat command: a terminal front end for the
// interview dialog, plus script validation.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the chat command tree.
func NewRootCommand() *cobra.Command {
	opts := &chatOptions{}

	root := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the campus interview bot in a terminal",
		Long: `chat runs the interview dialog locally, without LINE.

Recognition uses the LLM providers configured in the environment
(GEMINI_API_KEY, OPENAI_API_KEY, GROQ_API_KEY) and, with --local or
NLU_LOCAL_ENABLED=true, the offline lexical recognizer.

Type /quit to leave, /state to show the dialog position and /restart
to start over.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}

	root.Flags().BoolVar(&opts.local, "local", false, "enable the offline lexical recognizer")
	root.Flags().StringVar(&opts.scriptsPath, "scripts", "", "load topic scripts from a YAML file instead of the built-in table")
	root.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log recognizer and dialog decisions to stderr")
	root.Flags().BoolVar(&opts.plain, "plain", false, "disable colors")

	root.AddCommand(newValidateCommand(), newVersionCommand())
	return root
}
