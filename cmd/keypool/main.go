package main

import (
	"os"

	"github.com/logiqbot/keypool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
