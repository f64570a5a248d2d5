package models

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/nrednav/cuid2"

	"go.hackfix.me/portcullis/db/types"
	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// Rule is a firewall rule stored in the database.
type Rule struct {
	ID        uint64
	UUID      string
	CreatedAt time.Time
	ftypes.Rule
}

// Save stores the rule in the database. Rules can't be updated, so saving a
// rule equal to one already stored returns a *types.DuplicateError.
func (r *Rule) Save(ctx context.Context, d types.Querier) error {
	if r.Rule == (ftypes.Rule{}) {
		return errors.New("cannot save uninitialized rule")
	}
	if r.UUID == "" {
		r.UUID = cuid2.Generate()
	} else if !cuid2.IsCuid(r.UUID) {
		return fmt.Errorf("invalid rule UUID '%s'", r.UUID)
	}

	timeNow := d.TimeNow().UTC()
	insertStmt := `INSERT INTO rules
		(id, uuid, created_at, direction, protocol, min_port, max_port, min_ip, max_ip)
		VALUES (NULL, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := d.ExecContext(ctx, insertStmt,
		r.UUID, timeNow, r.Direction(), r.Protocol(), r.MinPort(), r.MaxPort(),
		addrToInt(r.MinIP()), addrToInt(r.MaxIP()),
	)
	if err != nil {
		return types.Err("rule", fmt.Sprintf("'%s'", r.Rule), err)
	}

	r.ID, err = lastInsertID(res)
	if err != nil {
		return err
	}
	r.CreatedAt = timeNow

	return nil
}

// Rules returns stored rules ordered by direction, protocol, ports and
// addresses. An optional filter can be passed to limit the results.
func Rules(ctx context.Context, d types.Querier, filter *types.Filter) (rules []*Rule, rerr error) {
	query := `SELECT
			r.id, r.uuid, r.created_at, r.direction, r.protocol,
			r.min_port, r.max_port, r.min_ip, r.max_ip
		FROM rules r %s
		ORDER BY r.direction, r.protocol, r.min_port, r.max_port, r.min_ip, r.max_ip`

	where, args := filter.Where()
	query = fmt.Sprintf(query, "WHERE "+where)

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.QueryError{Op: "load", Model: "rules", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing rules rows: %w", err)
		}
	}()

	rules = make([]*Rule, 0)
	for rows.Next() {
		var (
			r                  Rule
			direction, proto   string
			minPort, maxPort   uint16
			minIPInt, maxIPInt uint32
		)
		err = rows.Scan(&r.ID, &r.UUID, &r.CreatedAt, &direction, &proto,
			&minPort, &maxPort, &minIPInt, &maxIPInt)
		if err != nil {
			return nil, types.QueryError{Op: "scan", Model: "rule", Err: err}
		}

		r.Rule, err = ftypes.NewRuleFromRanges(
			ftypes.Direction(direction), ftypes.Protocol(proto),
			minPort, maxPort, intToAddr(minIPInt), intToAddr(maxIPInt),
		)
		if err != nil {
			return nil, types.QueryError{Op: "load", Model: "rule " + r.UUID, Err: err}
		}
		rules = append(rules, &r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over rules rows: %w", err)
	}

	return rules, nil
}

// RuleCount returns the number of stored rules matching the optional filter.
func RuleCount(ctx context.Context, d types.Querier, filter *types.Filter) (int, error) {
	return filterCount(ctx, d, "rules", filter)
}

// Addresses are stored as integers so that they sort numerically.
func addrToInt(addr ftypes.Address) uint32 {
	return binary.BigEndian.Uint32(addr[:])
}

func intToAddr(n uint32) ftypes.Address {
	var addr ftypes.Address
	binary.BigEndian.PutUint32(addr[:], n)
	return addr
}
