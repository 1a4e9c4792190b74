// sensitivity runs global sensitivity analyses against a local experiment
// store.
//
// Usage:
//
//	sensitivity run [--config=<path>|--stdin] [--metrics-textfile=<path>]
//	sensitivity design [--config=<path>|--stdin] [-o <file>]
//	sensitivity report --experiment=<id> | --results=<file> -o <dir>
//	sensitivity experiments list|show <id> [--store=<path>]
//	sensitivity migrate up|down|version|force <v> [--store=<path>]
//	sensitivity version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
