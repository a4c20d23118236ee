package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	orders "github.com/goliatone/go-orders"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestRegister_RequiresRegisterFunc(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected register function requirement")
	}
}

func migrationTree(t *testing.T) fstest.MapFS {
	t.Helper()
	tree := fstest.MapFS{}
	for i, concern := range []string{"orders", "payments", "webhooks", "commissions"} {
		for _, direction := range []string{"up", "down"} {
			name := fmt.Sprintf("0000%d_%s.%s.sql", i+1, concern, direction)
			sql := &fstest.MapFile{Data: []byte("SELECT 1;")}
			tree[name] = sql
			tree["sqlite/"+name] = sql
		}
	}
	return tree
}

func TestFilesystems_AcceptsCompleteSchemaTree(t *testing.T) {
	filesystems, err := Filesystems(migrationTree(t))
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}
}

func TestFilesystems_RejectsMissingDownMigration(t *testing.T) {
	tree := migrationTree(t)
	delete(tree, "00002_payments.down.sql")

	_, err := Filesystems(tree)
	if err == nil {
		t.Fatalf("expected missing down migration error")
	}
	if !strings.Contains(err.Error(), "00002_payments.down.sql") {
		t.Fatalf("expected error to name the missing down file, got %v", err)
	}
}

func TestFilesystems_RejectsMissingSchemaConcern(t *testing.T) {
	tree := migrationTree(t)
	delete(tree, "sqlite/00004_commissions.up.sql")
	delete(tree, "sqlite/00004_commissions.down.sql")

	_, err := Filesystems(tree)
	if err == nil {
		t.Fatalf("expected missing commissions migration error")
	}
	if !strings.Contains(err.Error(), "commissions") {
		t.Fatalf("expected error to name the missing concern, got %v", err)
	}
}

func TestMigrationPairs_ExistForBothDialects(t *testing.T) {
	root := orders.GetCoreMigrationsFS()
	names := []string{
		"00001_orders",
		"00002_payments",
		"00003_webhooks",
		"00004_commissions",
	}
	for _, name := range names {
		paths := []string{
			"data/sql/migrations/" + name + ".up.sql",
			"data/sql/migrations/" + name + ".down.sql",
			"data/sql/migrations/sqlite/" + name + ".up.sql",
			"data/sql/migrations/sqlite/" + name + ".down.sql",
		}
		for _, migrationPath := range paths {
			content, err := fs.ReadFile(root, migrationPath)
			if err != nil {
				t.Fatalf("read migration %s: %v", migrationPath, err)
			}
			if strings.TrimSpace(string(content)) == "" {
				t.Fatalf("expected migration %s to have SQL content", migrationPath)
			}
		}
	}
}

func TestSQLitePaymentsMigration_OpenPaymentUniqueness(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-open-payment?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := orders.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	for _, migration := range []string{"00001_orders.up.sql", "00002_payments.up.sql"} {
		if err := execSQLMigration(context.Background(), db, sqliteMigrations, migration); err != nil {
			t.Fatalf("apply migration %s: %v", migration, err)
		}
	}

	if _, err := db.ExecContext(
		context.Background(),
		`INSERT INTO orders (id, customer_id, vendor_id, subtotal_cents, total_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"ord-1", "cus-1", "ven-1", 2000, 2500, "PLACED",
	); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	insertPayment := `
		INSERT INTO payments (id, order_id, amount_cents, provider, provider_payment_id, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(context.Background(), insertPayment,
		"pay-1", "ord-1", 2500, "stripe", "pi_1", "PENDING"); err != nil {
		t.Fatalf("insert first payment: %v", err)
	}

	// a second open payment for the same order hits the partial unique index
	if _, err := db.ExecContext(context.Background(), insertPayment,
		"pay-2", "ord-1", 2500, "stripe", "pi_2", "PENDING"); err == nil {
		t.Fatalf("expected open payment uniqueness violation")
	}

	// a terminal payment does not block a fresh one
	if _, err := db.ExecContext(context.Background(),
		`UPDATE payments SET status = 'FAILED' WHERE id = 'pay-1'`); err != nil {
		t.Fatalf("fail first payment: %v", err)
	}
	if _, err := db.ExecContext(context.Background(), insertPayment,
		"pay-3", "ord-1", 2500, "stripe", "pi_3", "PENDING"); err != nil {
		t.Fatalf("expected fresh payment after terminal: %v", err)
	}
}

func TestSQLiteWebhooksMigration_EventAndDeadLetterUniqueness(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-webhook-uniqueness?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := orders.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00003_webhooks.up.sql"); err != nil {
		t.Fatalf("apply webhooks migration: %v", err)
	}

	insertEvent := `
		INSERT INTO webhook_events (id, provider, provider_event_id, event_type)
		VALUES (?, ?, ?, ?)
	`
	if _, err := db.ExecContext(context.Background(), insertEvent,
		"whe-1", "stripe", "evt_1", "payment.captured"); err != nil {
		t.Fatalf("insert event: %v", err)
	}
	if _, err := db.ExecContext(context.Background(), insertEvent,
		"whe-2", "stripe", "evt_1", "payment.captured"); err == nil {
		t.Fatalf("expected provider event uniqueness violation")
	}

	insertDeadLetter := `
		INSERT INTO webhook_dead_letters (id, event_id, provider, provider_event_id, event_type, error_message, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(context.Background(), insertDeadLetter,
		"dlq-1", "whe-1", "stripe", "evt_1", "payment.captured", "boom", 5); err != nil {
		t.Fatalf("insert dead letter: %v", err)
	}
	if _, err := db.ExecContext(context.Background(), insertDeadLetter,
		"dlq-2", "whe-1", "stripe", "evt_1", "payment.captured", "boom", 5); err == nil {
		t.Fatalf("expected dead letter uniqueness violation")
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00003_webhooks.down.sql"); err != nil {
		t.Fatalf("apply webhooks down migration: %v", err)
	}
	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='webhook_events'`,
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master after down: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected webhook_events to be dropped after down migration")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
