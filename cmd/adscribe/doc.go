// Package main hosts the adscribe CLI entrypoint and command graph.
//
// The Cobra command tree runs the HTTP daemon, executes one-shot pipeline
// runs against a source URL, queries a running daemon over /health, inspects
// and sweeps workspaces, and scaffolds configuration. Configuration loading
// is centralized in commandContext so subcommands only describe behavior.
package main
