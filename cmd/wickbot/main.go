package main

import (
	"os"

	"github.com/rustyeddy/wickbot/cmd/wickbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
