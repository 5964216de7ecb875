// researchsync keeps the research of a game instance in sync with the rest
// of its cluster.
package main

import (
	"fmt"
	"os"

	"github.com/spacemeshos/go-researchsync/cmd"
	"github.com/spacemeshos/go-researchsync/node"
)

var (
	version string
	commit  string
	branch  string
)

func main() {
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	if err := node.GetCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
