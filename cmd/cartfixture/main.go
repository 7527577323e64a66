// Command cartfixture resets a node's cartridge repository between
// end-to-end scenarios, lists what is installed, or serves the reset API.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
