// Package dedup decides whether a WorkRecord already exists in the target
// database.
//
// Resolve runs three lookups in order. An identifier match is authoritative.
// An exact title match is authoritative unless both sides carry different
// identifiers, which marks a different work that happens to share a title.
// When neither lookup settles it, a bounded scan of the database scores every
// title and returns the closest rows as candidates for the user to pick from;
// candidates are never applied automatically.
package dedup
