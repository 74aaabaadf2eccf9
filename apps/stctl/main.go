package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/quatton/skintwin/apps/stctl/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "stctl crashed: %v\n", r)
			if os.Getenv("SKINTWIN_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
