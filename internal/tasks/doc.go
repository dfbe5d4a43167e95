// Package tasks runs bulk favorites operations with real-time progress reporting.
//
// # Import
//
// [Importer.Import] takes a list of [Query] values (read with [ReadQueries] from a text file,
// one "Title - Artist" per line, or a CSV favorites export) and:
//
//  1. Searches every title on the catalog with a pool of workers
//  2. Picks the first result whose artist matches, or the first result when no artist was given
//  3. Adds the picks to favorites one at a time, skipping songs already present
//
// # Progress Reporting
//
// Progress goes through a non-blocking channel of [ProgressUpdate]. Updates use select with default
// so a slow listener never stalls the import.
package tasks
