// Package main hosts the watchlog CLI entrypoint and command graph.
//
// The Cobra command tree reads scraper extractions (a file or piped stdin),
// applies user edits from flags, and drives the duplicate resolver and upsert
// service against the configured Notion database. Every command that talks to
// Notion holds the worker lock for the state directory so concurrent runs
// share one paced request queue.
//
// Keep this package lean: behavior belongs in the internal packages; commands
// only translate flags, print tables, and render the --json response.
package main
