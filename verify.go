package rowfilter

import (
	pg_query "github.com/lfittl/pg_query_go"
	"github.com/pkg/errors"
)

// ErrRejected is the error produced when the Postgres grammar rejects a rewritten statement.
var ErrRejected = errors.New("rejected by postgres parser")

// VerifyPostgres checks sql against the real Postgres grammar (libpg_query).
// The rewriter's own parser accepts a superset of what some dialects allow,
// so this is a second opinion before a statement reaches the database.
func VerifyPostgres(sql string) error {
	if _, err := pg_query.Parse(sql); err != nil {
		return errors.Wrapf(ErrRejected, "%s: %s", sql, err)
	}
	return nil
}
