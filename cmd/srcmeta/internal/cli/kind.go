package cli

import (
	"github.com/spf13/cobra"
)

// Kind identifies a metadata command.
type Kind int

const (
	KindShow Kind = iota
	KindShrink
	KindUpdate
	KindStrip
	KindWatch
	numKinds
)

var kindNames = [numKinds]string{
	KindShow:   "show",
	KindShrink: "shrink",
	KindUpdate: "update",
	KindStrip:  "strip",
	KindWatch:  "watch",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Mutates reports whether the command rewrites binaries.
func (k Kind) Mutates() bool {
	return k != KindShow
}

// commands is the fixed command table, registered by NewRootCmd.
var commands = [numKinds]func(*app) *cobra.Command{
	KindShow:   newShowCmd,
	KindShrink: newShrinkCmd,
	KindUpdate: newUpdateCmd,
	KindStrip:  newStripCmd,
	KindWatch:  newWatchCmd,
}
