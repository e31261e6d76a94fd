package main

import (
	"os"

	"github.com/spacesedan/instalens/config"
)

func main() {
	config.LoadEnv(config.AppEnv())

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
