package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"stylebook/backend/internal/domain"
	"stylebook/backend/internal/store"
)

func TestPostgresIntegration_BookingConflictLifecycleAndAgenda(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("STYLEBOOK_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("STYLEBOOK_TEST_DATABASE_URL not set")
	}

	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "stylebook_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema + ", public").Exec(ctx); err != nil {
			return err
		}
		if err := applyMigrations(ctx, tx); err != nil {
			return err
		}

		stylist := domain.Stylist{
			ID:     uuid.MustParse("00000000-0000-0000-0000-000000000901"),
			Name:   "Ada",
			Active: true,
		}
		if _, err := tx.NewInsert().Model(&stylist).Exec(ctx); err != nil {
			return err
		}
		svc := domain.Service{
			ID:              uuid.MustParse("00000000-0000-0000-0000-000000000902"),
			Name:            "cut",
			DurationMinutes: 45,
			PriceCents:      5500,
			Active:          true,
		}
		if _, err := tx.NewInsert().Model(&svc).Exec(ctx); err != nil {
			return err
		}

		c := calendarTx{tx: tx}
		start := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

		a1, err := c.CreateAppointment(ctx, domain.Appointment{
			ID:              uuid.MustParse("00000000-0000-0000-0000-000000000911"),
			StylistID:       stylist.ID,
			ServiceID:       svc.ID,
			ClientName:      "Dana",
			StartTime:       start,
			DurationMinutes: 45,
			PriceCents:      5500,
			Status:          domain.StatusConfirmed,
		})
		if err != nil {
			return err
		}

		overlap, err := domain.NewInterval(start.Add(20*time.Minute), 30)
		if err != nil {
			return err
		}
		err = ensureNoBookingConflicts(ctx, c, stylist.ID, overlap, uuid.Nil)
		var conflictErr *domain.ConflictError
		if !errors.As(err, &conflictErr) {
			return fmt.Errorf("conflict check err = %v, want *domain.ConflictError", err)
		}
		if conflictErr.Conflicting.ID != a1.ID {
			return fmt.Errorf("conflicting id = %s, want %s", conflictErr.Conflicting.ID, a1.ID)
		}

		// Insert bypassing the in-transaction check; the exclusion constraint
		// still rejects it.
		_, err = c.CreateAppointment(ctx, domain.Appointment{
			ID:              uuid.MustParse("00000000-0000-0000-0000-000000000912"),
			StylistID:       stylist.ID,
			ServiceID:       svc.ID,
			ClientName:      "Eve",
			StartTime:       start.Add(20 * time.Minute),
			DurationMinutes: 30,
			PriceCents:      5500,
			Status:          domain.StatusPending,
		})
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("overlap err = %v, want %v", err, store.ErrConflict)
		}

		a2, err := c.CreateAppointment(ctx, domain.Appointment{
			ID:              uuid.MustParse("00000000-0000-0000-0000-000000000913"),
			StylistID:       stylist.ID,
			ServiceID:       svc.ID,
			ClientName:      "Eve",
			StartTime:       start.Add(45 * time.Minute),
			DurationMinutes: 30,
			PriceCents:      5500,
			Status:          domain.StatusPending,
		})
		if err != nil {
			return fmt.Errorf("back-to-back booking err = %v, want nil", err)
		}

		// Idempotent replay of the first insert, check-then-insert as Book
		// runs it: with its own ID excluded the occupied slot does not
		// conflict, and the insert returns the stored row.
		replayInterval, err := domain.NewInterval(start, 45)
		if err != nil {
			return err
		}
		if err := ensureNoBookingConflicts(ctx, c, stylist.ID, replayInterval, a1.ID); err != nil {
			return fmt.Errorf("replay conflict check err = %v, want nil", err)
		}
		replay, err := c.CreateAppointment(ctx, domain.Appointment{
			ID:              a1.ID,
			StylistID:       stylist.ID,
			ServiceID:       svc.ID,
			ClientName:      "Dana",
			StartTime:       start,
			DurationMinutes: 45,
			PriceCents:      5500,
			Status:          domain.StatusConfirmed,
		})
		if err != nil {
			return fmt.Errorf("idempotent replay err = %v, want nil", err)
		}
		if replay.ID != a1.ID {
			return fmt.Errorf("replay id = %s, want %s", replay.ID, a1.ID)
		}

		_, err = c.CreateAppointment(ctx, domain.Appointment{
			ID:              a1.ID,
			StylistID:       stylist.ID,
			ServiceID:       svc.ID,
			ClientName:      "someone else",
			StartTime:       start,
			DurationMinutes: 45,
			PriceCents:      5500,
			Status:          domain.StatusConfirmed,
		})
		if !errors.Is(err, store.ErrIdempotencyConflict) {
			return fmt.Errorf("idempotency err = %v, want %v", err, store.ErrIdempotencyConflict)
		}

		rows, err := listOverlapping(ctx, tx, stylist.ID, start, start.Add(2*time.Hour))
		if err != nil {
			return err
		}
		if len(rows) != 2 || rows[0].ID != a1.ID || rows[1].ID != a2.ID {
			return fmt.Errorf("overlapping rows = %v, want [%s %s]", rows, a1.ID, a2.ID)
		}

		// Cancelling frees the interval for a new booking.
		cancelled, err := domain.TransitionStatus(a1, domain.StatusCancelled)
		if err != nil {
			return err
		}
		if _, err := c.UpdateAppointment(ctx, cancelled); err != nil {
			return err
		}
		if err := ensureNoBookingConflicts(ctx, c, stylist.ID, overlap, uuid.Nil); err != nil {
			return fmt.Errorf("conflict check after cancel err = %v, want nil", err)
		}
		if _, err := c.CreateAppointment(ctx, domain.Appointment{
			ID:              uuid.MustParse("00000000-0000-0000-0000-000000000914"),
			StylistID:       stylist.ID,
			ServiceID:       svc.ID,
			ClientName:      "Fay",
			StartTime:       start.Add(20 * time.Minute),
			DurationMinutes: 25,
			PriceCents:      5500,
			Status:          domain.StatusPending,
		}); err != nil {
			return fmt.Errorf("booking over cancelled slot err = %v, want nil", err)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("tx error: %v", err)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if normalized, ok := normalizeExtensionStatement(stmt); ok {
				stmt = normalized
			}
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

// btree_gist must land in a schema on the search path even when the test
// runs inside a throwaway schema.
func normalizeExtensionStatement(stmt string) (string, bool) {
	s := strings.TrimSpace(stmt)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "CREATE EXTENSION") {
		return "", false
	}
	if !strings.Contains(upper, "BTREE_GIST") {
		return "", false
	}
	if strings.Contains(upper, " SCHEMA ") {
		return "", false
	}
	return s + " SCHEMA public", true
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
