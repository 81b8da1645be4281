// Command chat runs the interview dialog in a terminal.
package main

import (
	"os"

	"github.com/garyellow/campus-interview-bot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
