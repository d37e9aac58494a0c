// Command winsvc lists, controls and configures Windows services.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultOpen).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
