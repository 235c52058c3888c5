package main

import (
	"os"

	"github.com/ydhoon/policy-ranker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
