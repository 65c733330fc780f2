// Package sqlite persists long-term memory facts in a SQLite database using
// the pure-Go modernc driver. Similarity is computed inside SQLite by a
// registered cosine_similarity scalar function.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/companion/pkg/memory"
	sqlite "modernc.org/sqlite"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// scalarRegistrar matches sqlite.RegisterDeterministicScalarFunction.
type scalarRegistrar func(name string, nArg int32, fn func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error)) error

// registerFunctions installs cosine_similarity(a BLOB, b BLOB) on every
// connection opened by the driver. The outcome of the first call is sticky.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = registerWith(sqlite.RegisterDeterministicScalarFunction)
	})
	return registerErr
}

func registerWith(register scalarRegistrar) error {
	if err := register("cosine_similarity", 2, cosineSimilarity); err != nil {
		return fmt.Errorf("register cosine_similarity: %w", err)
	}
	return nil
}

func cosineSimilarity(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, err := blob(args[0])
	if err != nil {
		return nil, err
	}
	b, err := blob(args[1])
	if err != nil {
		return nil, err
	}
	return memory.CosineSimilarity(a, b), nil
}

func blob(v driver.Value) ([]float32, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return memory.DecodeVector(x)
	default:
		return nil, fmt.Errorf("cosine_similarity: unsupported argument type %T", v)
	}
}

// Index implements memory.Index on SQLite. Safe for concurrent use.
type Index struct {
	db *sql.DB
}

var _ memory.Index = (*Index)(nil)

// Open opens (creating if needed) the database at path. Use ":memory:" for
// an ephemeral index.
func Open(path string) (*Index, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate memory schema: %w", err)
	}
	return idx, nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		session_key TEXT NOT NULL,
		text        TEXT NOT NULL,
		vector      BLOB NOT NULL,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_key);
	`
	_, err := x.db.Exec(schema)
	return err
}

// Add stores a fact for sessionKey.
func (x *Index) Add(ctx context.Context, sessionKey string, fact memory.Fact) error {
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO memories (id, session_key, text, vector, created_at) VALUES (?, ?, ?, ?, ?)`,
		fact.ID, sessionKey, fact.Text, memory.EncodeVector(fact.Vector), fact.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// Search returns the k facts of sessionKey closest to vector.
func (x *Index) Search(ctx context.Context, sessionKey string, vector []float32, k int) ([]memory.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := x.db.QueryContext(ctx, `
		SELECT id, text, vector, created_at, cosine_similarity(vector, ?) AS score
		FROM memories
		WHERE session_key = ?
		ORDER BY score DESC, created_at ASC
		LIMIT ?`,
		memory.EncodeVector(vector), sessionKey, k,
	)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var out []memory.Match
	for rows.Next() {
		var (
			f       memory.Fact
			raw     []byte
			created int64
			score   float64
		)
		if err := rows.Scan(&f.ID, &f.Text, &raw, &created, &score); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if f.Vector, err = memory.DecodeVector(raw); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(0, created)
		out = append(out, memory.Match{Fact: f, Score: score})
	}
	return out, rows.Err()
}

// Count returns the number of facts stored for sessionKey.
func (x *Index) Count(ctx context.Context, sessionKey string) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE session_key = ?`, sessionKey).Scan(&n)
	return n, err
}

// Forget deletes every fact of sessionKey.
func (x *Index) Forget(ctx context.Context, sessionKey string) error {
	_, err := x.db.ExecContext(ctx, `DELETE FROM memories WHERE session_key = ?`, sessionKey)
	return err
}
