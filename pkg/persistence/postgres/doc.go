// Package postgres stores model attributes in a PostgreSQL table.
//
// A Store implements model.Syncer against a table of the form
//
//	CREATE TABLE records (
//	    url        TEXT PRIMARY KEY,
//	    attrs      JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//
// Statements are built with goqu and executed through a DBAdapter, so the
// same Store runs on a pgx pool or on a sqlx handle using the lib/pq driver.
package postgres
