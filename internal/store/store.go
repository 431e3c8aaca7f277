// Package store persists parsed/solved models behind database/sql, the way
// internal/database pools connections to sqlite/postgres/mysql/sqlserver
// backends selected by a single identifier string — generalized here from
// "scan result" persistence to "solved model" persistence.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"optex/internal/solve"
)

// Store wraps a database/sql handle chosen by a DSN scheme. An empty DSN
// means persistence is disabled; callers check Store == nil before use.
type Store struct {
	db     *sql.DB
	driver string
}

// Open selects a driver from the DSN's scheme and opens a handle against it:
//
//	sqlite://path/to/file.db     -> mattn/go-sqlite3 (cgo)
//	sqlitepure://path/to/file.db -> modernc.org/sqlite (pure Go)
//	postgres://...               -> lib/pq
//	mysql://...                  -> go-sql-driver/mysql
//	sqlserver://...              -> denisenkom/go-mssqldb
//
// An empty dsn returns a nil *Store and a nil error: the caller simply skips
// persistence.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: invalid dsn: %w", err)
	}

	var driver, connStr string
	switch u.Scheme {
	case "sqlite":
		driver, connStr = "sqlite3", u.Opaque+u.Host+u.Path
	case "sqlitepure":
		driver, connStr = "sqlite", u.Opaque+u.Host+u.Path
	case "postgres", "postgresql":
		driver, connStr = "postgres", dsn
	case "mysql":
		driver, connStr = "mysql", dsn[len("mysql://"):]
	case "sqlserver":
		driver, connStr = "sqlserver", dsn
	default:
		return nil, fmt.Errorf("store: unsupported dsn scheme %q", u.Scheme)
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS optex_runs (
	source_hash   TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	model_print   TEXT NOT NULL,
	solution_json TEXT NOT NULL,
	solve_micros  BIGINT NOT NULL,
	recorded_at   TEXT NOT NULL
)`)
	return err
}

// SourceHash returns the hex sha256 of source, the key a Run is filed under.
func SourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Run is one recorded solve: the source that produced it, the ground
// model's printed form (for determinism regression), the solution, and how
// long the solve took.
type Run struct {
	SourceHash  string
	Source      string
	ModelPrint  string
	Solution    *solve.Solution
	SolveTime   time.Duration
	RecordedAt  time.Time
}

// Save records a Run, keyed by its source hash. Saving the same hash again
// overwrites the prior row — a run is reproducible given identical source.
func (s *Store) Save(run Run) error {
	if s == nil {
		return nil
	}
	payload, err := json.Marshal(run.Solution)
	if err != nil {
		return fmt.Errorf("store: marshal solution: %w", err)
	}
	_, err = s.db.Exec(s.upsertQuery(),
		run.SourceHash, run.Source, run.ModelPrint, string(payload),
		run.SolveTime.Microseconds(), run.RecordedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// upsertQuery returns the dialect-appropriate upsert for optex_runs: REPLACE
// INTO for mysql, ON CONFLICT for postgres, MERGE for sqlserver, and sqlite's
// INSERT OR REPLACE otherwise.
func (s *Store) upsertQuery() string {
	switch s.driver {
	case "mysql":
		return `REPLACE INTO optex_runs (source_hash, source, model_print, solution_json, solve_micros, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`
	case "postgres":
		return `INSERT INTO optex_runs (source_hash, source, model_print, solution_json, solve_micros, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (source_hash) DO UPDATE SET
	source = EXCLUDED.source, model_print = EXCLUDED.model_print,
	solution_json = EXCLUDED.solution_json, solve_micros = EXCLUDED.solve_micros,
	recorded_at = EXCLUDED.recorded_at`
	case "sqlserver":
		return `MERGE optex_runs AS target
USING (SELECT @p1 AS source_hash) AS src
ON target.source_hash = src.source_hash
WHEN MATCHED THEN UPDATE SET source=@p2, model_print=@p3, solution_json=@p4, solve_micros=@p5, recorded_at=@p6
WHEN NOT MATCHED THEN INSERT (source_hash, source, model_print, solution_json, solve_micros, recorded_at)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6);`
	default:
		return `INSERT OR REPLACE INTO optex_runs (source_hash, source, model_print, solution_json, solve_micros, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`
	}
}

// Load looks up a previously-saved Run by its source hash. The zero Run and
// a false are returned if no row matches.
func (s *Store) Load(sourceHash string) (Run, bool, error) {
	if s == nil {
		return Run{}, false, nil
	}
	row := s.db.QueryRow(s.selectQuery(), sourceHash)

	var (
		source, modelPrint, payload, recordedAt string
		micros                                  int64
	)
	switch err := row.Scan(&source, &modelPrint, &payload, &micros, &recordedAt); err {
	case sql.ErrNoRows:
		return Run{}, false, nil
	case nil:
	default:
		return Run{}, false, err
	}

	var sol solve.Solution
	if err := json.Unmarshal([]byte(payload), &sol); err != nil {
		return Run{}, false, fmt.Errorf("store: unmarshal solution: %w", err)
	}
	recorded, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Run{}, false, fmt.Errorf("store: parse recorded_at: %w", err)
	}

	return Run{
		SourceHash: sourceHash,
		Source:     source,
		ModelPrint: modelPrint,
		Solution:   &sol,
		SolveTime:  time.Duration(micros) * time.Microsecond,
		RecordedAt: recorded,
	}, true, nil
}

func (s *Store) selectQuery() string {
	if s.driver == "postgres" {
		return `SELECT source, model_print, solution_json, solve_micros, recorded_at FROM optex_runs WHERE source_hash = $1`
	}
	if s.driver == "sqlserver" {
		return `SELECT source, model_print, solution_json, solve_micros, recorded_at FROM optex_runs WHERE source_hash = @p1`
	}
	return `SELECT source, model_print, solution_json, solve_micros, recorded_at FROM optex_runs WHERE source_hash = ?`
}
