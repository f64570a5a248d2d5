package migrator

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		files  fstest.MapFS
		expIDs []int
		expErr string
	}{
		{
			name: "ok/sorted",
			files: fstest.MapFS{
				"10-add-index.up.sql":   {Data: []byte("CREATE INDEX x ON t (a);")},
				"10-add-index.down.sql": {Data: []byte("DROP INDEX x;")},
				"2-init.up.sql":         {Data: []byte("CREATE TABLE t (a);")},
				"2-init.down.sql":       {Data: []byte("DROP TABLE t;")},
			},
			expIDs: []int{2, 10},
		},
		{
			name: "err/missing_down",
			files: fstest.MapFS{
				"1-init.up.sql": {Data: []byte("CREATE TABLE t (a);")},
			},
			expErr: "migration 1-init must have both up and down files",
		},
		{
			name: "err/invalid_name",
			files: fstest.MapFS{
				"init.sql": {Data: []byte("CREATE TABLE t (a);")},
			},
			expErr: "invalid migration file name 'init.sql'",
		},
		{
			name: "err/conflicting_names",
			files: fstest.MapFS{
				"1-init.up.sql":  {Data: []byte("CREATE TABLE t (a);")},
				"1-setup.up.sql": {Data: []byte("CREATE TABLE u (a);")},
			},
			expErr: "conflicting names for migration 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			migrations, err := LoadMigrations(tt.files)
			if tt.expErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.expErr)
				return
			}

			require.NoError(t, err)
			ids := make([]int, 0, len(migrations))
			for _, m := range migrations {
				ids = append(ids, m.ID)
				assert.NotEmpty(t, m.Up)
				assert.NotEmpty(t, m.Down)
			}
			assert.Equal(t, tt.expIDs, ids)
		})
	}
}

func TestNewPlan(t *testing.T) {
	t.Parallel()

	migrations := []*Migration{{ID: 1}, {ID: 2}, {ID: 3}}

	tests := []struct {
		name    string
		applied []int
		dir     MigrationDirection
		to      string
		expIDs  []int
		expErr  string
	}{
		{name: "ok/up_all", dir: MigrationUp, to: "all", expIDs: []int{1, 2, 3}},
		{name: "ok/up_partial", applied: []int{1}, dir: MigrationUp, to: "all", expIDs: []int{2, 3}},
		{name: "ok/up_to_target", dir: MigrationUp, to: "2", expIDs: []int{1, 2}},
		{name: "ok/up_nothing", applied: []int{1, 2, 3}, dir: MigrationUp, to: "all"},
		{name: "ok/down_all", applied: []int{1, 2, 3}, dir: MigrationDown, to: "all", expIDs: []int{3, 2, 1}},
		{name: "ok/down_to_target", applied: []int{1, 2, 3}, dir: MigrationDown, to: "1", expIDs: []int{3, 2}},
		{name: "err/invalid_target", dir: MigrationUp, to: "latest", expErr: "invalid migration target 'latest'"},
		{name: "err/invalid_direction", dir: "sideways", to: "all", expErr: "invalid migration direction 'sideways'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			applied := map[int]struct{}{}
			for _, id := range tt.applied {
				applied[id] = struct{}{}
			}

			plan, err := newPlan(migrations, applied, tt.dir, tt.to)
			if tt.expErr != "" {
				assert.EqualError(t, err, tt.expErr)
				return
			}

			require.NoError(t, err)
			var ids []int
			for _, m := range plan {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.expIDs, ids)
		})
	}
}
