package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"shuttle/internal/config"
	intdb "shuttle/internal/db"
	"shuttle/internal/domain"

	"github.com/go-sql-driver/mysql"
)

const stateTable = "local_state"

// StateStore is a revisioned key/value store for the persisted local state.
type StateStore interface {
	// Load returns payload and revision; a missing key is (nil, 0, nil).
	Load(ctx context.Context, key string) ([]byte, int64, error)
	Revision(ctx context.Context, key string) (int64, error)
	// Save writes only when the stored revision equals expected (0 = key must not exist).
	Save(ctx context.Context, key string, payload []byte, expected int64) (int64, error)
	// Put writes unconditionally.
	Put(ctx context.Context, key string, payload []byte) error
}

// StateRepository stores local state rows in MySQL.
type StateRepository struct {
	DB *sql.DB
}

func (r StateRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return config.DB
}

// EnsureSchema creates local_state when missing.
func (r StateRepository) EnsureSchema(ctx context.Context) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db not connected")
	}
	if intdb.HasTable(db, stateTable) {
		// tabel lama tanpa kolom revision
		if !intdb.HasColumn(db, stateTable, "revision") {
			_, err := db.ExecContext(ctx, `ALTER TABLE `+stateTable+` ADD COLUMN revision BIGINT NOT NULL DEFAULT 1`)
			return err
		}
		return nil
	}
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+stateTable+` (
			state_key  VARCHAR(64) NOT NULL PRIMARY KEY,
			payload    LONGTEXT NOT NULL,
			revision   BIGINT NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`)
	return err
}

func (r StateRepository) Load(ctx context.Context, key string) ([]byte, int64, error) {
	db := r.db()
	if db == nil {
		return nil, 0, fmt.Errorf("db not connected")
	}
	var payload string
	var rev int64
	err := db.QueryRowContext(ctx, `SELECT payload, revision FROM `+stateTable+` WHERE state_key=? LIMIT 1`, key).
		Scan(&payload, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return []byte(payload), rev, nil
}

func (r StateRepository) Revision(ctx context.Context, key string) (int64, error) {
	db := r.db()
	if db == nil {
		return 0, fmt.Errorf("db not connected")
	}
	var rev int64
	err := db.QueryRowContext(ctx, `SELECT revision FROM `+stateTable+` WHERE state_key=? LIMIT 1`, key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

func (r StateRepository) Save(ctx context.Context, key string, payload []byte, expected int64) (int64, error) {
	db := r.db()
	if db == nil {
		return 0, fmt.Errorf("db not connected")
	}
	now := time.Now()

	if expected == 0 {
		_, err := db.ExecContext(ctx,
			`INSERT INTO `+stateTable+` (state_key, payload, revision, updated_at) VALUES (?, ?, 1, ?)`,
			key, string(payload), now)
		if err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) && me.Number == 1062 {
				return 0, domain.ConflictError{Resource: key, Msg: "state was written by another instance", Err: err}
			}
			return 0, err
		}
		return 1, nil
	}

	res, err := db.ExecContext(ctx,
		`UPDATE `+stateTable+` SET payload=?, revision=revision+1, updated_at=? WHERE state_key=? AND revision=?`,
		string(payload), now, key, expected)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, domain.ConflictError{Resource: key, Msg: fmt.Sprintf("revision %d is stale", expected)}
	}
	return expected + 1, nil
}

func (r StateRepository) Put(ctx context.Context, key string, payload []byte) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db not connected")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+stateTable+` (state_key, payload, revision, updated_at) VALUES (?, ?, 1, ?)
		ON DUPLICATE KEY UPDATE payload=VALUES(payload), revision=revision+1, updated_at=VALUES(updated_at)`,
		key, string(payload), time.Now())
	return err
}

// MemoryStateStore keeps state in process. Not durable; used in tests and when no MySQL is configured.
type MemoryStateStore struct {
	mu   sync.Mutex
	rows map[string]memoryRow
	// FailSave, when set, is returned by Save and Put.
	FailSave error
}

type memoryRow struct {
	payload  []byte
	revision int64
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{rows: map[string]memoryRow{}}
}

func (m *MemoryStateStore) Load(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key]
	if !ok {
		return nil, 0, nil
	}
	return append([]byte(nil), row.payload...), row.revision, nil
}

func (m *MemoryStateStore) Revision(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key].revision, nil
}

func (m *MemoryStateStore) Save(_ context.Context, key string, payload []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return 0, m.FailSave
	}
	row := m.rows[key]
	if row.revision != expected {
		return 0, domain.ConflictError{Resource: key, Msg: fmt.Sprintf("revision %d is stale", expected)}
	}
	row = memoryRow{payload: append([]byte(nil), payload...), revision: expected + 1}
	m.rows[key] = row
	return row.revision, nil
}

func (m *MemoryStateStore) Put(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	row := m.rows[key]
	m.rows[key] = memoryRow{payload: append([]byte(nil), payload...), revision: row.revision + 1}
	return nil
}
