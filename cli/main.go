package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/calmjs/calmjs-webpack/cli/cmd"
	"github.com/calmjs/calmjs-webpack/internal/toolchain"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var exitErr *toolchain.ExitError
		if errors.As(err, &exitErr) && exitErr.Code > 0 {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
