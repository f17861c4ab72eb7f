// Package phrases persists the phrase catalog and the submissions recorded
// against it.
//
// A single Store type serves both SQLite (modernc.org/sqlite) and PostgreSQL
// (pgx stdlib); Open picks the dialect once from configuration and every
// query afterwards runs through that dialect's statement set. The store owns
// the two invariants the rest of the service leans on: a phrase's
// sample_count always equals the number of committed submissions that
// reference it, and phrase selection is uniform over the phrases still below
// the collection quota.
//
// Infrastructure failures surface as services.ErrUnavailable; a missing phrase
// surfaces as services.ErrNotFound.
package phrases
