// The main package for the snapshotd executable.
package main

import (
	"github.com/sharevia/snapshotd/cmd"
)

func main() {
	cmd.Execute()
}
