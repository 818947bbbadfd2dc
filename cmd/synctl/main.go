package main

import (
	"github.com/retailbridge/rms-commerce-sync/internal/adapters/cli"
)

func main() {
	cli.Execute()
}
