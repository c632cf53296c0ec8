package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStorage is a durable, single-file Storage backend. It keeps the
// pragma and connection-pool recipe of an embeddable single-writer SQLite
// store: WAL journaling for concurrent readers, a bounded busy timeout
// instead of immediate lock failures, and a modest page cache.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLiteStorage opens (and if necessary creates) a SQLite-backed store
// at path.
func OpenSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=cache_size(-2000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w: %w", ErrUnavailable, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(2 * time.Hour)

	s := &SQLiteStorage{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS points (
		id INTEGER PRIMARY KEY,
		vector BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		point_id INTEGER PRIMARY KEY,
		payload TEXT NOT NULL,
		FOREIGN KEY (point_id) REFERENCES points(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS neighbors (
		layer INTEGER NOT NULL,
		point_id INTEGER NOT NULL,
		node BLOB NOT NULL,
		PRIMARY KEY (layer, point_id)
	);

	CREATE TABLE IF NOT EXISTS counters (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_id INTEGER NOT NULL DEFAULT 0,
		entry_point INTEGER,
		entry_top_layer INTEGER,
		has_entry INTEGER NOT NULL DEFAULT 0,
		num_layers INTEGER NOT NULL DEFAULT 0,
		data_size INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO counters (id, next_id, num_layers, data_size) VALUES (1, 0, 0, 0);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("storage: create tables: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) NewPoint(ctx context.Context, vec Point, metadata map[string]string) (PointID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage: new point: %w", err)
	}
	defer tx.Rollback()

	var nextID int64
	if err := tx.QueryRowContext(ctx, `SELECT next_id FROM counters WHERE id = 1`).Scan(&nextID); err != nil {
		return 0, fmt.Errorf("storage: new point: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO points (id, vector) VALUES (?, ?)`, nextID, EncodePoint(vec)); err != nil {
		return 0, fmt.Errorf("storage: new point: %w", err)
	}

	if metadata != nil {
		payload, err := encodeMetadataJSON(metadata)
		if err != nil {
			return 0, fmt.Errorf("storage: new point: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (point_id, payload) VALUES (?, ?)`, nextID, payload); err != nil {
			return 0, fmt.Errorf("storage: new point: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE counters SET next_id = next_id + 1, data_size = data_size + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("storage: new point: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: new point: %w", err)
	}
	return PointID(nextID), nil
}

func (s *SQLiteStorage) GetPoint(ctx context.Context, id PointID) (Point, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM points WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrMissingRecord
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get point: %w", err)
	}
	return DecodePoint(blob)
}

func (s *SQLiteStorage) GetPoints(ctx context.Context, ids []PointID) (map[PointID]Point, error) {
	out := make(map[PointID]Point, len(ids))
	for _, id := range ids {
		p, err := s.GetPoint(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

func (s *SQLiteStorage) GetMetadata(ctx context.Context, id PointID) (map[string]string, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM metadata WHERE point_id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get metadata: %w", err)
	}
	return decodeMetadataJSON(payload)
}

func (s *SQLiteStorage) GetNeighbors(ctx context.Context, layer int, id PointID) (LayerNode, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT node FROM neighbors WHERE layer = ? AND point_id = ?`, layer, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return LayerNode{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get neighbors: %w", err)
	}
	return DecodeLayerNode(blob)
}

func (s *SQLiteStorage) GetNeighborsBatch(ctx context.Context, layer int, ids []PointID) (map[PointID]LayerNode, error) {
	out := make(map[PointID]LayerNode, len(ids))
	for _, id := range ids {
		node, err := s.GetNeighbors(ctx, layer, id)
		if err != nil {
			return nil, err
		}
		out[id] = node
	}
	return out, nil
}

func (s *SQLiteStorage) UpsertNeighbors(ctx context.Context, layer int, id PointID, node LayerNode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO neighbors (layer, point_id, node) VALUES (?, ?, ?)
		 ON CONFLICT(layer, point_id) DO UPDATE SET node = excluded.node`,
		layer, id, EncodeLayerNode(node))
	if err != nil {
		return fmt.Errorf("storage: upsert neighbors: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertNeighborsBatch(ctx context.Context, layer int, nodes map[PointID]LayerNode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: upsert neighbors batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO neighbors (layer, point_id, node) VALUES (?, ?, ?)
		 ON CONFLICT(layer, point_id) DO UPDATE SET node = excluded.node`)
	if err != nil {
		return fmt.Errorf("storage: upsert neighbors batch: %w", err)
	}
	defer stmt.Close()

	for id, node := range nodes {
		if _, err := stmt.ExecContext(ctx, layer, id, EncodeLayerNode(node)); err != nil {
			return fmt.Errorf("storage: upsert neighbors batch: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) NewNeighbor(ctx context.Context, _ PointID, level int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE counters SET num_layers = MAX(num_layers, ?) WHERE id = 1`, level+1)
	if err != nil {
		return fmt.Errorf("storage: new neighbor: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetEntryPoint(ctx context.Context) (PointID, int, bool, error) {
	var id, topLayer sql.NullInt64
	var hasEntry int
	err := s.db.QueryRowContext(ctx,
		`SELECT entry_point, entry_top_layer, has_entry FROM counters WHERE id = 1`).
		Scan(&id, &topLayer, &hasEntry)
	if err != nil {
		return 0, 0, false, fmt.Errorf("storage: get entry point: %w", err)
	}
	if hasEntry == 0 {
		return 0, 0, false, nil
	}
	return PointID(id.Int64), int(topLayer.Int64), true, nil
}

func (s *SQLiteStorage) SetEntryPoint(ctx context.Context, id PointID, topLayer int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE counters SET entry_point = ?, entry_top_layer = ?, has_entry = 1 WHERE id = 1`,
		id, topLayer)
	if err != nil {
		return fmt.Errorf("storage: set entry point: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetNumLayers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT num_layers FROM counters WHERE id = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: get num layers: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) GetDataSize(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT data_size FROM counters WHERE id = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: get data size: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
