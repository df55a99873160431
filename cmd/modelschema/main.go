// Command modelschema loads entity declarations and inspects the schemas they compile to.
//
// Declarations come from YAML files, directories of YAML files, or files written in the
// declaration language. Sources are listed in the config file or passed with --source.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
