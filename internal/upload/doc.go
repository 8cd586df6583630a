// Package upload ships snapshot CSV files to an object store for reporting.
//
// Each tick the Shipper hands top-dogs.csv and contest-goals.csv to an
// Uploader under a timestamped key (top-dogs-<unix>.csv). A file is removed
// locally only after its upload succeeded, so a failed upload is retried on
// the next tick.
package upload
