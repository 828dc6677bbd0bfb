// Srcmeta inspects and rewrites the build-provenance metadata that a
// compiler plugin embeds into binaries.
package main

import (
	"github.com/albertocavalcante/srcmeta/cmd/srcmeta/internal/cli"
)

func main() {
	cli.Execute()
}
