// Command topicnav inspects recordings and replays topic navigation offline.
package main

import (
	"os"

	"github.com/ethpandaops/topicnav/cmd/topicnav/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
