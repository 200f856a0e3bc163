// Package revision defines the document and revision model.
//
// A Document is a stable identity that points at its current authoritative
// Revision. A Revision is an immutable snapshot of document text with derived
// metadata and a per-document sequence number starting at 1. Documents are
// never edited in place: every change, whether a debounced checkpoint or an
// accepted patch transaction, produces a new Revision and repoints the head.
//
// The Store interface abstracts revision persistence. MemoryStore is the
// in-process implementation; store/postgres provides a database-backed one.
package revision
