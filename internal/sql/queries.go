package sql

import (
	"embed"
)

// Migrations holds the schema files, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/upsert_entry.sql
var UpsertEntry string

//go:embed queries/select_entries.sql
var SelectEntries string

//go:embed queries/select_bills.sql
var SelectBills string

//go:embed queries/delete_bills.sql
var DeleteBills string
