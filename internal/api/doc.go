// Package api serves the latest published snapshot files over HTTP and WebSocket.
//
// The server is read-only: every request reads the snapshot file from disk, so it
// always reflects the most recent publish without coordinating with the crawler.
package api
