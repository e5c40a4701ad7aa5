// Command bdb stores and queries ODIM_H5 radar metadata.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/baltrad/baltrad-db-sub003/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
