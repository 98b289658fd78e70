//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"calmkit/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveModel(ctx context.Context, record model.ModelRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO models (name, id, format, input_dim, output_dim, schema_version, codec_version, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			id = excluded.id,
			format = excluded.format,
			input_dim = excluded.input_dim,
			output_dim = excluded.output_dim,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			data = excluded.data
	`, record.Name, record.ID, record.Format, record.InputDim, record.OutputDim,
		record.SchemaVersion, record.CodecVersion, record.Data)
	return err
}

const modelColumns = `name, id, format, input_dim, output_dim, schema_version, codec_version, data`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (model.ModelRecord, error) {
	var r model.ModelRecord
	err := row.Scan(&r.Name, &r.ID, &r.Format, &r.InputDim, &r.OutputDim, &r.SchemaVersion, &r.CodecVersion, &r.Data)
	if err != nil {
		return model.ModelRecord{}, err
	}
	if err := checkVersion(r.VersionedRecord); err != nil {
		return model.ModelRecord{}, fmt.Errorf("model %s: %w", r.Name, err)
	}
	return r, nil
}

func (s *SQLiteStore) GetModel(ctx context.Context, name string) (model.ModelRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.ModelRecord{}, false, err
	}

	record, err := scanModel(db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM models WHERE name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ModelRecord{}, false, nil
		}
		return model.ModelRecord{}, false, err
	}
	return record, true, nil
}

func (s *SQLiteStore) ListModels(ctx context.Context) ([]model.ModelRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+modelColumns+` FROM models ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ModelRecord
	for rows.Next() {
		record, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteModel(ctx context.Context, name string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM models WHERE name = ?`, name)
	return err
}

func (s *SQLiteStore) SaveLibrary(ctx context.Context, record model.LibraryRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeLibraryRecord(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO libraries (name, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.Name, record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetLibrary(ctx context.Context, name string) (model.LibraryRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.LibraryRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM libraries WHERE name = ?`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LibraryRecord{}, false, nil
		}
		return model.LibraryRecord{}, false, err
	}

	record, err := DecodeLibraryRecord(payload)
	if err != nil {
		return model.LibraryRecord{}, false, fmt.Errorf("decode library %s: %w", name, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListLibraries(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT name FROM libraries ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS models (
			name TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			format TEXT NOT NULL,
			input_dim INTEGER NOT NULL,
			output_dim INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			data BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS libraries (
			name TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
