// Package entrystore defines persistence-facing contracts for loading and
// saving per-strand entry histories, plus a small orchestrator that exposes
// stored histories through the core metadata accessors.
//
// Responsibilities:
//   - Store only loads/saves the entry history for a single Ref.
//   - Strands builds metadata.StrandMap declarations backed by a Store and
//     guards writes with optimistic concurrency (Meta.ETag).
//   - The core metadata package remains persistence-agnostic; all persistence
//     logic stays behind Store implementations supplied by consumers.
//
// Data flow:
//
//	Store -> Strands.Map(...) -> metadata.StrandMap -> resolution
//
// Deterministic keys:
//
//	Ref.Identifier() provides a canonical storage key of the form
//	"<subject ref>/<strand>", e.g. "press/42/images".
package entrystore
