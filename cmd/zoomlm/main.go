// Command zoomlm trains, inspects and navigates the predictive models behind a
// zooming text entry interface.
package main

import (
	"os"

	"github.com/datatrails/go-datatrails-common/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the exit code once the logger
// has been flushed.
func run(args []string) int {
	defer func() {
		// The logger only exists once the configuration has loaded.
		if logger.Sugar != nil {
			logger.OnExit()
		}
	}()
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
