// Package engine talks to the local execution engine: it serializes typed
// commands into the engine's console language and parses the technology
// lines the engine prints in response to a dump.
package engine

import (
	"fmt"

	"github.com/spacemeshos/go-researchsync/tech"
)

// Command is one instruction for the engine. The set of commands is closed.
type Command interface {
	Kind() string
	command()
}

// Dump asks the engine to print one line per technology it knows about.
type Dump struct{}

func (Dump) Kind() string { return "dump" }
func (Dump) command()     {}

// Unlock installs a technology state completed by the cluster.
type Unlock struct {
	Name       string
	Researched bool
	Level      int
	Infinite   bool
	Progress   tech.Progress
	// Notify prints the description to players in the engine.
	Notify bool
}

func (Unlock) Kind() string { return "unlock" }
func (Unlock) command()     {}

// Description is the human readable text of the unlock.
func (u Unlock) Description() string {
	if u.Infinite {
		return fmt.Sprintf("Unlocking infinite research %s at level %d", u.Name, u.Level)
	}
	return fmt.Sprintf("Unlocking research %s", u.Name)
}

// SetProgress moves a technology to the cluster progress. Last is the progress
// this node tracked when the command was built; the engine keeps any work done
// since then on top of New.
type SetProgress struct {
	Name string
	Last tech.Progress
	New  float64
}

func (SetProgress) Kind() string { return "set_progress" }
func (SetProgress) command()     {}
