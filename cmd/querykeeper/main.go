package main

import (
	"os"

	"github.com/solatis/querykeeper/cmd/querykeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
