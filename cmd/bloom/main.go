// Package main is the single-binary entrypoint for Bloom: the CLI and
// the engagement engine daemon in one executable.
package main

import "github.com/bloom-health/bloom/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
