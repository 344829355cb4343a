package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/service"
	sqlitestore "github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store/sqlite"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

// openTestDB returns an in-memory SQLite connection with the production
// schema, closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	require.NoError(t, conn.Ping())
	_, err = db.Migrate(context.Background(), conn)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })
	return conn
}

// fixture wires the services over one in-memory database.
type fixture struct {
	conn     *sql.DB
	gw       *db.Gateway
	visitors *sqlitestore.VisitorStore
	visits   *service.VisitService
	roster   *service.RosterService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := openTestDB(t)
	gw := db.NewGateway(conn, zap.NewNop())
	t.Cleanup(gw.Close)

	vs := sqlitestore.NewVisitorStore(gw)
	return &fixture{
		conn:     conn,
		gw:       gw,
		visitors: vs,
		visits:   service.NewVisitService(vs, gw, nil, nil, zap.NewNop()),
		roster:   service.NewRosterService(sqlitestore.NewRosterStore(gw, zap.NewNop()), nil, zap.NewNop()),
	}
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.conn.QueryRow(query, args...).Scan(&n))
	return n
}

func janeDoe() service.RegisterInput {
	return service.RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Details: types.VisitDetails{
			KnownAs:        "Jane",
			Address:        "12 Elm Street",
			PhoneNumber:    "555-0199",
			Unit:           "4B",
			ReasonForVisit: "Family",
			VisitorType:    "Visitor",
		},
	}
}

func intPtr(v int) *int { return &v }

func sqlitestoreRoster(f *fixture) *sqlitestore.RosterStore {
	return sqlitestore.NewRosterStore(f.gw, zap.NewNop())
}
