package main

import (
	"os"

	"github.com/akave-ai/auditlens/cmd/auditlens/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
