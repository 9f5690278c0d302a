// Package main is the entry point for the item pickup server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
