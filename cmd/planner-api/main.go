package main

import (
	"os"
)

// @title Planner Sync API
// @version 1.0.0
// @description Shared multi-calendar schedule store with optimistic concurrency and three-way merge
// @BasePath /api
// @schemes http

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
