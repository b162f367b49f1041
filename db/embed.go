// Package db provides embedded database schema and seed files.
package db

import _ "embed"

// Schema contains the DDL statements for the customers, orders and
// order_items tables. The audit table is managed by the ORM.
//
//go:embed migrations/001_schema.sql
var Schema string
