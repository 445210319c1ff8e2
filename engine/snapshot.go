package engine

import (
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const (
	driverName = "sqlite3"

	// One private in-memory database per connection. The engine holds a
	// single dedicated connection, so the image lives exactly once.
	memoryDSN = ":memory:?_foreign_keys=on"
)

// serializeConn returns the full binary image of the database behind conn.
func serializeConn(conn *sql.Conn) ([]byte, error) {
	var data []byte
	err := conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		b, err := sc.Serialize("main")
		if err != nil {
			return fmt.Errorf("failed to serialize database: %w", err)
		}
		data = b
		return nil
	})
	return data, err
}

// deserializeConn replaces the database behind conn with the given image.
func deserializeConn(conn *sql.Conn, data []byte) error {
	err := conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		if err := sc.Deserialize(data, "main"); err != nil {
			return fmt.Errorf("failed to deserialize database: %w", err)
		}
		return nil
	})
	return err
}
