package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production. The connection is closed when the test ends.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// The shared-cache URI keeps the database alive while sql.DB recycles
	// its connection.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}
	if _, err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestGateway wraps conn in a gateway whose worker stops with the test.
func newTestGateway(t *testing.T, conn *sql.DB) *db.Gateway {
	t.Helper()

	gw := db.NewGateway(conn, zap.NewNop())
	t.Cleanup(gw.Close)
	return gw
}

func intPtr(v int) *int { return &v }

func sampleDetails() types.VisitDetails {
	return types.VisitDetails{
		KnownAs:                      "JD",
		Address:                      "12 Elm Street",
		PhoneNumber:                  "555-0199",
		Unit:                         "4B",
		ReasonForVisit:               "Family",
		VisitorType:                  "Visitor",
		CompanyName:                  "",
		MandatoryAcknowledgmentTaken: true,
	}
}

func register(t *testing.T, vs store.VisitorStore, first, last string, at time.Time, deps ...types.Dependent) types.RegisterResult {
	t.Helper()

	res, err := vs.Register(context.Background(), store.NewVisitor{
		FirstName:  first,
		LastName:   last,
		Details:    sampleDetails(),
		Dependents: deps,
		At:         at,
	})
	if err != nil {
		t.Fatalf("Register %s %s: %v", first, last, err)
	}
	return res
}

func count(t *testing.T, conn *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}
