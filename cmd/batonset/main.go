// Command batonset schedules and tabulates baton twirling contests.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/batonset/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
