// Package sql provides relational persistence for container entrypoints
// that provision schemas and seed data during startup, against MySQL or
// PostgreSQL.
//
// The engine differences are isolated in an Adapter: driver name, DSN
// shape, identifier quoting, bind-parameter style, version query, schema
// naming, JSON column handling, and the classification of the errors that
// an idempotent re-run provokes (table, index, or row already present).
// The Client works purely in terms of that interface, so rows read and
// written by entrypoints look identical on both engines.
//
// Rows follow the doc_id convention inherited from the LDAP tree: every
// table carries a doc_id primary key derived from the entry's DN, and all
// row operations address rows through it.
//
// Table metadata is reflected once from information_schema.columns and
// memoized; creating a table invalidates the cache so the next operation
// sees the new columns.
//
// Example usage:
//
//	client, err := sql.NewClient()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := client.CreateTable(ctx, "gluuPerson", map[string]string{
//		"doc_id":      "VARCHAR(64)",
//		"objectClass": "VARCHAR(48)",
//	}, "doc_id"); err != nil {
//		log.Fatal(err)
//	}
package sql
