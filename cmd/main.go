package main

import (
	"os"

	"github.com/beyondbrewing/brewery-kv/pkg/logger"
)

func main() {
	logger.SetDefault(logger.MustProduction())

	code := 0
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		code = 1
	}

	logger.SyncDefault()
	os.Exit(code)
}
