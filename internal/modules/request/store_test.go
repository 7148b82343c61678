// README: DB-backed request ledger tests (open slot, resolve race, reopen). Run with CONVOY_TEST_DSN set.
package request

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"convoy/internal/types"
)

func TestSubmitCollapsesIntoOpenSlot(t *testing.T) {
	ctx := context.Background()
	store, seed := setupTestStore(t)
	now := time.Now()

	first, created, err := store.Submit(ctx, seed.tripID, seed.driverID, KindStart, now)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if !created {
		t.Fatal("first submit should create the row")
	}
	if first.Status != StatusOpen {
		t.Fatalf("expected open, got %s", first.Status)
	}

	second, created, err := store.Submit(ctx, seed.tripID, seed.driverID, KindStart, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if created {
		t.Fatal("second submit must be a no-op")
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same open row, got ids %d and %d", first.ID, second.ID)
	}

	// A finish request occupies its own slot.
	_, created, err = store.Submit(ctx, seed.tripID, seed.driverID, KindFinish, now)
	if err != nil {
		t.Fatalf("finish submit: %v", err)
	}
	if !created {
		t.Fatal("finish submit should create its own row")
	}
}

func TestResolveSingleWinner(t *testing.T) {
	ctx := context.Background()
	store, seed := setupTestStore(t)

	req, _, err := store.Submit(ctx, seed.tripID, seed.driverID, KindStart, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res := Resolution{Status: StatusApproved, ResolvedAt: time.Now()}
	won, err := store.Resolve(ctx, req.ID, res)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !won {
		t.Fatal("first resolve should win")
	}

	won, err = store.Resolve(ctx, req.ID, res)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if won {
		t.Fatal("second resolve must lose")
	}

	if _, err := store.Open(ctx, seed.tripID, KindStart); !errors.Is(err, ErrNoOpenRequest) {
		t.Fatalf("slot should be free after resolution, got %v", err)
	}
}

func TestReopenRestoresSlot(t *testing.T) {
	ctx := context.Background()
	store, seed := setupTestStore(t)

	req, _, err := store.Submit(ctx, seed.tripID, seed.driverID, KindStart, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := store.Resolve(ctx, req.ID, Resolution{Status: StatusApproved, ResolvedAt: time.Now()}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := store.Reopen(ctx, req.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	open, err := store.Open(ctx, seed.tripID, KindStart)
	if err != nil {
		t.Fatalf("open after reopen: %v", err)
	}
	if open.ID != req.ID {
		t.Fatalf("expected row %d back in the slot, got %d", req.ID, open.ID)
	}
	if open.ResolvedAt != nil {
		t.Fatal("reopened request should have no resolution timestamp")
	}
}

func TestReopenYieldsToFreshRequest(t *testing.T) {
	ctx := context.Background()
	store, seed := setupTestStore(t)
	now := time.Now()

	old, _, err := store.Submit(ctx, seed.tripID, seed.driverID, KindStart, now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resolvedAt := now.Add(time.Minute)
	if _, err := store.Resolve(ctx, old.ID, Resolution{Status: StatusRejected, Reason: "load shifted", ResolvedAt: resolvedAt}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// A different driver takes the freed slot before the reopen lands.
	fresh, _, err := store.Submit(ctx, seed.tripID, seed.otherDriverID, KindStart, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("fresh submit: %v", err)
	}

	if err := store.Reopen(ctx, old.ID); err != nil {
		t.Fatalf("reopen should swallow the unique violation: %v", err)
	}

	open, err := store.Open(ctx, seed.tripID, KindStart)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if open.ID != fresh.ID {
		t.Fatalf("fresh request should hold the slot, got row %d", open.ID)
	}
}

func TestLastRejectionAndLatest(t *testing.T) {
	ctx := context.Background()
	store, seed := setupTestStore(t)
	now := time.Now()

	if last, err := store.LastRejection(ctx, seed.driverID, seed.tripID); err != nil || last != nil {
		t.Fatalf("expected no rejection yet, got %v / %v", last, err)
	}

	req, _, err := store.Submit(ctx, seed.tripID, seed.driverID, KindStart, now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	unblockAt := now.Add(72 * time.Hour)
	resolvedAt := now.Add(time.Minute)
	if _, err := store.Resolve(ctx, req.ID, Resolution{
		Status:       StatusRejected,
		Reason:       "missing permit",
		CooldownDays: 3,
		UnblockAt:    &unblockAt,
		ResolvedAt:   resolvedAt,
	}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	last, err := store.LastRejection(ctx, seed.driverID, seed.tripID)
	if err != nil {
		t.Fatalf("last rejection: %v", err)
	}
	if last == nil {
		t.Fatal("expected a rejection")
	}
	if last.Reason != "missing permit" || last.CooldownDays != 3 {
		t.Fatalf("unexpected rejection: %+v", last)
	}
	if last.UnblockAt == nil {
		t.Fatal("expected unblock_at to be stored")
	}

	// The rejection binds the driver: nothing for anyone else.
	if other, err := store.LastRejection(ctx, seed.otherDriverID, seed.tripID); err != nil || other != nil {
		t.Fatalf("other driver should have no rejection, got %v / %v", other, err)
	}

	latest, err := store.Latest(ctx, seed.tripID, KindStart)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != req.ID || latest.Status != StatusRejected {
		t.Fatalf("unexpected latest: %+v", latest)
	}
	if finish, err := store.Latest(ctx, seed.tripID, KindFinish); err != nil || finish != nil {
		t.Fatalf("expected no finish request, got %v / %v", finish, err)
	}
}

func TestListOpenOlderThan(t *testing.T) {
	ctx := context.Background()
	store, seed := setupTestStore(t)
	now := time.Now()

	if _, _, err := store.Submit(ctx, seed.tripID, seed.driverID, KindStart, now.Add(-3*time.Hour)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stale, err := store.ListOpenOlderThan(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale request, got %d", len(stale))
	}

	stale, err = store.ListOpenOlderThan(ctx, now.Add(-6*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected no stale requests at the earlier cutoff, got %d", len(stale))
	}
}

type seedIDs struct {
	tripID        types.ID
	driverID      types.ID
	otherDriverID types.ID
}

func setupTestStore(t *testing.T) (*Store, seedIDs) {
	t.Helper()

	dsn := os.Getenv("CONVOY_TEST_DSN")
	if dsn == "" {
		t.Skip("CONVOY_TEST_DSN not set; skipping DB-backed store tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE trip_requests, trip_state_events, trips, vehicles, drivers"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	var seed seedIDs
	var did, odid, vid, tid int64
	if err := db.QueryRow(ctx,
		"INSERT INTO drivers (name, role) VALUES ('Marcos Rivera', 'transportista') RETURNING id",
	).Scan(&did); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	if err := db.QueryRow(ctx,
		"INSERT INTO drivers (name, role) VALUES ('Elena Cruz', 'transportista') RETURNING id",
	).Scan(&odid); err != nil {
		t.Fatalf("seed second driver: %v", err)
	}
	if err := db.QueryRow(ctx,
		"INSERT INTO vehicles (plate, model) VALUES ('JKL-402-A', 'Kenworth T680') RETURNING id",
	).Scan(&vid); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	if err := db.QueryRow(ctx, `
        INSERT INTO trips (origin_region, origin_locality, dest_region, dest_locality,
                           scheduled_at, driver_id, vehicle_id, status)
        VALUES ('Jalisco', 'Guadalajara', 'Nuevo León', 'Monterrey', NOW() + INTERVAL '1 day', $1, $2, 'pending')
        RETURNING id`, did, vid,
	).Scan(&tid); err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	seed.driverID = types.ID(did)
	seed.otherDriverID = types.ID(odid)
	seed.tripID = types.ID(tid)

	return NewStore(db), seed
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	for _, name := range []string{"0001_init.sql", "0002_requests.sql"} {
		path := filepath.Join(root, "migrations", name)
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		cleaned := stripSQLComments(string(content))
		for _, stmt := range splitSQL(cleaned) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
