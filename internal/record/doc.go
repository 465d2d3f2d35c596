// Package record defines WorkRecord, the canonical watch-list entry, and the
// mapping between it and a Notion database row.
//
// Mapper.Properties builds a full upsert body that sets or clears every
// column it owns. Mapper.CompletionProperties builds a partial patch that only
// fills columns the stored row lacks. FromPage reads a row back into a
// WorkRecord, and FromExtraction turns scraper output into one.
package record
