// Package upsert writes a WorkRecord to the target database.
//
// Upsert issues exactly one create or update, chosen by whether the record
// carries a RemoteID, and then posts the optional comment. Save runs the
// duplicate resolver first and enriches the record from the matched row.
// Complete patches only the columns an existing row is missing.
//
// A comment failure after a successful write is reported as *CommentError,
// which wraps services.ErrPartialSuccess and still carries the saved row id.
package upsert
