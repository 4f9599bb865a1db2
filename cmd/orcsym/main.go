// Command orcsym inspects orchestra manifests and plugin directories.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/orcsym/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
