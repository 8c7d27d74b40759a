package main

import (
	"os"

	"github.com/speedrun-hq/speedrun-settler/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
