package phrases

import (
	"database/sql"
	_ "embed"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"voicecollect/internal/config"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// dialect captures everything that differs between the two backends. It is
// chosen once in Open and never consulted per call to pick a code path.
type dialect struct {
	name        string
	driverName  string
	schema      string
	tableExists string
	// readTx is used for multi-statement reads that must observe one snapshot.
	readTx *sql.TxOptions
	// transient reports errors worth retrying the whole transaction for.
	transient func(error) bool
	rebind    func(string) string
	// timeArg converts a timestamp into the driver's preferred bind value.
	timeArg func(time.Time) any
}

// sqliteTimeLayout is fixed-width so text timestamps sort chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	sqliteBusyCode   = 5
	sqliteLockedCode = 6
)

var sqliteDialect = dialect{
	name:        config.DriverSQLite,
	driverName:  "sqlite",
	schema:      sqliteSchema,
	tableExists: "SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?",
	readTx:      nil,
	transient:   isSQLiteBusy,
	rebind:      func(q string) string { return q },
	timeArg:     func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
}

var postgresDialect = dialect{
	name:        config.DriverPostgres,
	driverName:  "pgx",
	schema:      postgresSchema,
	tableExists: "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1",
	readTx:      &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	transient:   isPostgresConflict,
	rebind:      rebindDollar,
	timeArg:     func(t time.Time) any { return t.UTC() },
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return sqliteDialect, nil
	case config.DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, errors.New("unsupported database driver " + strconv.Quote(driver))
	}
}

// sqliteDSN enables WAL, foreign keys and a busy timeout on every pooled connection.
func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		code := coder.Code() & 0xff
		if code == sqliteBusyCode || code == sqliteLockedCode {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isPostgresConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return true
	default:
		return false
	}
}

// rebindDollar rewrites ? placeholders to $1..$n.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// asTime converts a scanned timestamp column; SQLite hands back text while
// pgx hands back time.Time.
func asTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTimeString(v)
	case []byte:
		return parseTimeString(string(v))
	default:
		return time.Time{}, errors.New("unsupported timestamp type")
	}
}

func parseTimeString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp " + strconv.Quote(value))
}
