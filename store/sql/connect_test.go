package sqlstore_test

import (
	"context"
	"testing"

	sqlstore "github.com/goliatone/go-orders/store/sql"
)

func TestOpenSQLite(t *testing.T) {
	db, err := sqlstore.OpenSQLite("file:connect-test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(context.Background()); err != nil {
		t.Fatalf("ping sqlite: %v", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromDB(db)
	if err != nil {
		t.Fatalf("factory from db: %v", err)
	}
	if factory.OrderStore() == nil || factory.PaymentStore() == nil {
		t.Fatalf("expected stores from opened db")
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := sqlstore.OpenSQLite("  "); err == nil {
		t.Fatalf("expected sqlite dsn requirement")
	}
	if _, err := sqlstore.OpenPostgres(""); err == nil {
		t.Fatalf("expected postgres dsn requirement")
	}
}
