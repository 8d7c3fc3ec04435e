// Command vidbrief summarizes or analyzes a single video from the shell
package main

import (
	"os"
)

func main() {
	cmd := New()
	if err := cmd.Execute(); err != nil {
		printError(cmd.ErrOrStderr(), err)
		os.Exit(exitCode(err))
	}
}
