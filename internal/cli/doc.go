// Package cli implements the command-line interface for topdog.
//
// The cli package provides the Cobra-based commands: crawl runs the scrape,
// reconcile, rank and publish cycle on a schedule (or once), serve exposes the
// published snapshot over HTTP and WebSocket, and upload ships the CSV snapshots
// to the object store. All commands share the viper-backed configuration.
package cli
