package migrator

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"time"

	"go.hackfix.me/portcullis/db/types"
)

// MigrationDirection is the direction in which migrations are applied.
type MigrationDirection string

// Supported migration directions.
const (
	MigrationUp   MigrationDirection = "up"
	MigrationDown MigrationDirection = "down"
)

// Migration is a single schema change, with the SQL to apply and to roll it
// back.
type Migration struct {
	ID   int
	Name string
	Up   string
	Down string
}

var fileRx = regexp.MustCompile(`^(\d+)-([\w-]+)\.(up|down)\.sql$`)

// LoadMigrations reads all migration files from the root of fsys, and returns
// them sorted by ID. Every migration must have both an up and a down file.
func LoadMigrations(fsys fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory: %w", err)
	}

	byID := map[int]*Migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := fileRx.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("invalid migration file name '%s'", entry.Name())
		}

		id, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration ID in '%s': %w", entry.Name(), err)
		}

		m, ok := byID[id]
		if !ok {
			m = &Migration{ID: id, Name: match[2]}
			byID[id] = m
		} else if m.Name != match[2] {
			return nil, fmt.Errorf("conflicting names for migration %d: '%s' and '%s'", id, m.Name, match[2])
		}

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed reading migration file '%s': %w", entry.Name(), err)
		}
		if MigrationDirection(match[3]) == MigrationUp {
			m.Up = string(data)
		} else {
			m.Down = string(data)
		}
	}

	migrations := make([]*Migration, 0, len(byID))
	for _, m := range byID {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %d-%s must have both up and down files", m.ID, m.Name)
		}
		migrations = append(migrations, m)
	}
	slices.SortFunc(migrations, func(a, b *Migration) int { return a.ID - b.ID })

	return migrations, nil
}

// RunMigrations applies migrations in the given direction. to is either "all",
// or the ID of the last migration to apply when migrating up, or of the last
// migration to keep when migrating down.
func RunMigrations(
	d types.Querier, migrations []*Migration, dir MigrationDirection, to string,
	logger *slog.Logger,
) error {
	ctx := d.NewContext()
	if err := createHistoryTable(ctx, d); err != nil {
		return err
	}

	applied, err := appliedMigrations(ctx, d)
	if err != nil {
		return err
	}

	plan, err := newPlan(migrations, applied, dir, to)
	if err != nil {
		return err
	}

	for _, m := range plan {
		mlogger := logger.With("migration_id", m.ID, "migration_name", m.Name, "direction", dir)
		mlogger.Debug("applying migration")

		if dir == MigrationUp {
			if _, err = d.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("failed applying migration %d-%s: %w", m.ID, m.Name, err)
			}
			_, err = d.ExecContext(ctx,
				`INSERT INTO _migrations (id, name, applied_at) VALUES (?, ?, ?)`,
				m.ID, m.Name, d.TimeNow().UTC())
		} else {
			if _, err = d.ExecContext(ctx, m.Down); err != nil {
				return fmt.Errorf("failed rolling back migration %d-%s: %w", m.ID, m.Name, err)
			}
			_, err = d.ExecContext(ctx, `DELETE FROM _migrations WHERE id = ?`, m.ID)
		}
		if err != nil {
			return fmt.Errorf("failed updating migration history: %w", err)
		}

		mlogger.Debug("applied migration")
	}

	return nil
}

func newPlan(
	migrations []*Migration, applied map[int]struct{}, dir MigrationDirection, to string,
) ([]*Migration, error) {
	target := -1
	if to != "all" {
		var err error
		if target, err = strconv.Atoi(to); err != nil {
			return nil, fmt.Errorf("invalid migration target '%s'", to)
		}
	}

	var plan []*Migration
	switch dir {
	case MigrationUp:
		for _, m := range migrations {
			if target >= 0 && m.ID > target {
				break
			}
			if _, ok := applied[m.ID]; !ok {
				plan = append(plan, m)
			}
		}
	case MigrationDown:
		for _, m := range slices.Backward(migrations) {
			if target >= 0 && m.ID <= target {
				break
			}
			if _, ok := applied[m.ID]; ok {
				plan = append(plan, m)
			}
		}
	default:
		return nil, fmt.Errorf("invalid migration direction '%s'", dir)
	}

	return plan, nil
}

func createHistoryTable(ctx context.Context, d types.Querier) error {
	_, err := d.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed creating migration history table: %w", err)
	}
	return nil
}

func appliedMigrations(ctx context.Context, d types.Querier) (applied map[int]struct{}, rerr error) {
	rows, err := d.QueryContext(ctx, `SELECT id FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed loading migration history: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing migration history rows: %w", err)
		}
	}()

	applied = map[int]struct{}{}
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed scanning migration history: %w", err)
		}
		applied[id] = struct{}{}
	}

	return applied, rows.Err()
}

// History returns the IDs and application times of applied migrations, in
// the order they were applied.
func History(ctx context.Context, d types.Querier) (ids []int, times []time.Time, rerr error) {
	rows, err := d.QueryContext(ctx, `SELECT id, applied_at FROM _migrations ORDER BY id ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed loading migration history: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing migration history rows: %w", err)
		}
	}()

	for rows.Next() {
		var (
			id int
			ts time.Time
		)
		if err = rows.Scan(&id, &ts); err != nil {
			return nil, nil, fmt.Errorf("failed scanning migration history: %w", err)
		}
		ids = append(ids, id)
		times = append(times, ts)
	}

	return ids, times, rows.Err()
}
