package engine

import (
	"context"
	"database/sql"
)

// =============================================================================
// SCHEMA GUARD - Decides reseed vs. reuse at Init time
// =============================================================================

// RequiredTables is the floor a snapshot must expose to be considered
// current. The check is a subset check: extra tables never cause failure,
// missing ones always do.
var RequiredTables = []string{"company", "days", "sales", "settings"}

// schemaCurrent reports whether the database behind conn contains every
// required table. Order is irrelevant and unexpected tables are ignored.
func schemaCurrent(ctx context.Context, conn *sql.Conn) (bool, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	for _, want := range RequiredTables {
		if !present[want] {
			return false, nil
		}
	}
	return true, nil
}
