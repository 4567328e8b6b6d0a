// Command kassa is the operator shell of the kassa point-of-sale core.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/kassa/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	// Command errors have already been reported in the selected format.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
