// Command aliasprobe measures how much each ambiguous alias-analysis
// decision affects the code size of an optimized module.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/aliasprobe/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "aliasprobe: %v\n", err)
	os.Exit(cli.GetExitCode(err))
}
