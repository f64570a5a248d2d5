package db_test

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/portcullis/db"
	"go.hackfix.me/portcullis/db/migrator"
	"go.hackfix.me/portcullis/db/models"
	"go.hackfix.me/portcullis/db/queries"
	"go.hackfix.me/portcullis/db/types"
	ftypes "go.hackfix.me/portcullis/firewall/types"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

func openTestDB(t *testing.T) *db.DB {
	t.Helper()

	// A unique name per test, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	d, err := db.Open(context.Background(),
		fmt.Sprintf("file:portcullis-%x?mode=memory&cache=shared", rndName), timeNowFn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestDBInit(t *testing.T) {
	t.Parallel()

	d := openTestDB(t)
	ctx := d.NewContext()

	version, err := queries.Version(ctx, d)
	require.NoError(t, err)
	assert.False(t, version.Valid)

	err = d.Init("v1.2.3", slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	version, err = queries.Version(ctx, d)
	require.NoError(t, err)
	assert.True(t, version.Valid)
	assert.Equal(t, "v1.2.3", version.V)

	tables, err := queries.GetAllTables(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"rules": {}}, tables)

	ids, times, err := migrator.History(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)
	require.Len(t, times, 1)
	assert.True(t, times[0].Equal(timeNow))
}

func TestRuleSave(t *testing.T) {
	t.Parallel()

	d := openTestDB(t)
	require.NoError(t, d.Init("test", slog.New(slog.DiscardHandler)))
	ctx := d.NewContext()

	r := &models.Rule{Rule: ftypes.MustNewRule("inbound", "tcp", "80-90", "192.168.1.2-192.168.2.1")}
	require.NoError(t, r.Save(ctx, d))
	assert.Equal(t, uint64(1), r.ID)
	assert.NotEmpty(t, r.UUID)
	assert.Equal(t, timeNow, r.CreatedAt)

	t.Run("err/duplicate", func(t *testing.T) {
		dup := &models.Rule{Rule: ftypes.MustNewRule("inbound", "tcp", "80-90", "192.168.1.2-192.168.2.1")}
		err := dup.Save(ctx, d)
		var dupErr *types.DuplicateError
		require.ErrorAs(t, err, &dupErr)
		assert.EqualError(t, err, "rule 'inbound,tcp,80-90,192.168.1.2-192.168.2.1' already exists")
	})

	t.Run("err/uninitialized", func(t *testing.T) {
		err := (&models.Rule{}).Save(ctx, d)
		assert.EqualError(t, err, "cannot save uninitialized rule")
	})

	t.Run("err/invalid_uuid", func(t *testing.T) {
		bad := &models.Rule{UUID: "not a cuid!", Rule: ftypes.MustNewRule("inbound", "tcp", "81", "10.0.0.1")}
		err := bad.Save(ctx, d)
		assert.EqualError(t, err, "invalid rule UUID 'not a cuid!'")
	})

	count, err := models.RuleCount(ctx, d, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRules(t *testing.T) {
	t.Parallel()

	d := openTestDB(t)
	require.NoError(t, d.Init("test", slog.New(slog.DiscardHandler)))
	ctx := d.NewContext()

	input := []string{
		"outbound,udp,53,8.8.8.8",
		"inbound,tcp,80,192.168.1.100",
		"inbound,tcp,80,192.168.1.20",
		"inbound,tcp,1-65535,10.0.0.0-10.255.255.255",
		"inbound,udp,53,0.0.0.0-255.255.255.255",
	}
	for _, in := range input {
		rule := mustRuleFromTuple(t, in)
		require.NoError(t, (&models.Rule{Rule: rule}).Save(ctx, d))
	}

	rules, err := models.Rules(ctx, d, nil)
	require.NoError(t, err)

	got := make([]string, 0, len(rules))
	for _, r := range rules {
		got = append(got, r.String())
	}
	// Addresses are sorted numerically.
	assert.Equal(t, []string{
		"inbound,tcp,1-65535,10.0.0.0-10.255.255.255",
		"inbound,tcp,80,192.168.1.20",
		"inbound,tcp,80,192.168.1.100",
		"inbound,udp,53,0.0.0.0-255.255.255.255",
		"outbound,udp,53,8.8.8.8",
	}, got)

	filter := types.NewFilter("r.direction = ?", ftypes.Inbound).
		And("r.protocol = ?", ftypes.UDP)
	rules, err = models.Rules(ctx, d, filter)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "inbound,udp,53,0.0.0.0-255.255.255.255", rules[0].String())

	count, err := models.RuleCount(ctx, d, types.NewFilter("direction = ?", ftypes.Inbound))
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	d := openTestDB(t)
	require.NoError(t, d.Init("test", slog.New(slog.DiscardHandler)))
	ctx := d.NewContext()

	errAbort := errors.New("abort")
	err := d.Update(func(tx *db.Tx) error {
		r := &models.Rule{Rule: ftypes.MustNewRule("inbound", "tcp", "22", "10.0.0.1")}
		if err := r.Save(tx.NewContext(), tx); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	count, err := models.RuleCount(ctx, d, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = d.Update(func(tx *db.Tx) error {
		for _, tuple := range []string{"inbound,tcp,22,10.0.0.1", "inbound,tcp,22,10.0.0.1"} {
			r := &models.Rule{Rule: mustRuleFromTuple(t, tuple)}
			err := r.Save(tx.NewContext(), tx)
			var dupErr *types.DuplicateError
			if err != nil && !errors.As(err, &dupErr) {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	count, err = models.RuleCount(ctx, d, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConstraintError(t *testing.T) {
	t.Parallel()

	d := openTestDB(t)
	require.NoError(t, d.Init("test", slog.New(slog.DiscardHandler)))

	_, err := d.ExecContext(d.NewContext(), `INSERT INTO rules
		(uuid, created_at, direction, protocol, min_port, max_port, min_ip, max_ip)
		VALUES ('x', ?, 'inbound', 'tcp', 90, 80, 1, 1)`, timeNow)
	require.Error(t, err)

	err = types.Err("rule", "'x'", err)
	var cErr *types.ConstraintError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "rule", cErr.Model)
	assert.ErrorContains(t, err, "rule 'x' violates a database constraint")
}

func TestFilter(t *testing.T) {
	t.Parallel()

	var f *types.Filter
	where, args := f.Where()
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)

	f = f.And("a = ?", 1)
	f2 := f.And("b = ? OR c = ?", 2, 3)

	where, args = f.Where()
	assert.Equal(t, "(a = ?)", where)
	assert.Equal(t, []any{1}, args)

	where, args = f2.Where()
	assert.Equal(t, "(a = ?) AND (b = ? OR c = ?)", where)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func mustRuleFromTuple(t *testing.T, tuple string) ftypes.Rule {
	t.Helper()
	f := strings.Split(tuple, ",")
	require.Len(t, f, 4)

	rule, err := ftypes.NewRule(f[0], f[1], f[2], f[3])
	require.NoError(t, err)
	return rule
}
