// Package main hosts the Podmill CLI entrypoint and command graph.
//
// The Cobra-based command tree covers feed discovery, the download,
// transcribe, and digest stages, digest export, blog writing, and
// maintenance commands (status, errors, retry, mark-processed). It centralizes configuration
// resolution, store access, structured logging setup, and process locking so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
