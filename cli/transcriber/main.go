package main

import (
	"os"

	transcribercmder "github.com/papercomputeco/transcriber/cmd/transcriber"
)

func main() {
	cmd := transcribercmder.NewTranscriberCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
