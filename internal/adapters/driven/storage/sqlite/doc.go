// Package sqlite keeps documents, chunk vectors, user history and scheduler
// state in one database file (~/.regdocs/data/regdocs.db by default) using
// the pure Go modernc.org/sqlite driver.
//
// Vector search is a brute-force cosine scan over the namespace, which is
// adequate for a single operator's document set; larger deployments select
// the qdrant backend instead.
//
// Migrations under migrations/ are applied in order on open and recorded in
// schema_migrations. The database runs in WAL mode; every store is safe for
// concurrent use.
package sqlite
