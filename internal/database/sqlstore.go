package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"datalint/internal/apperr"
	"datalint/internal/logging"
	"datalint/internal/metrics"
)

// Default timeout for single-statement operations
const defaultTimeout = 5 * time.Second

// SQLStore is the database/sql implementation of Store over SQLite.
type SQLStore struct {
	db     *sql.DB
	path   string
	driver Driver
	dedup  DedupPolicy
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens or creates the SQLite cache file named by cfg.DSN.
func OpenSQL(ctx context.Context, cfg Config) (*SQLStore, error) {
	cfg = cfg.WithDefaults()
	logging.Debug("Opening cache %s (driver %s)", cfg.DSN, cfg.Driver)

	if err := diagnoseDatabasePermissions(cfg.DSN); err != nil {
		logging.Debug("Cache permission diagnostics: %v", err)
	}

	db, err := sql.Open(string(cfg.Driver), sqliteDSN(cfg.Driver, cfg.DSN))
	if err != nil {
		return nil, apperr.Store("open cache", fmt.Errorf("failed to open database: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, apperr.Store("open cache", fmt.Errorf("failed to connect to database: %w", err))
	}

	// One writer; a few readers for lookups.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	return &SQLStore{db: db, path: cfg.DSN, driver: cfg.Driver, dedup: cfg.Dedup}, nil
}

// sqliteDSN applies WAL and busy-timeout settings in each driver's syntax.
func sqliteDSN(driver Driver, path string) string {
	if driver == DriverSQLite {
		return fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", path)
}

// Migrate implements Store.
func (s *SQLStore) Migrate(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("migrate", start, err) }()

	if _, err = s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return apperr.Store("migrate", fmt.Errorf("failed to initialize cache schema: %w", err))
	}

	if s.dedup == DedupUnique {
		if _, err = s.db.ExecContext(ctx, createUniqueHashIndex); err != nil {
			return apperr.Store("migrate", fmt.Errorf("failed to create unique hash index: %w", err))
		}
	}
	return nil
}

// InitCacheMetadata implements Store.
func (s *SQLStore) InitCacheMetadata(ctx context.Context, meta *CacheMetadata) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("init_metadata", start, err) }()

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Store("init metadata", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing int64
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_metadata`).Scan(&existing); err != nil {
		return 0, apperr.Store("init metadata", err)
	}
	if existing > 0 {
		err = apperr.Store("init metadata", ErrAlreadyInitialized)
		return 0, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO cache_metadata (dataset_path, dataset_type, dataset_task, version, hash_algorithm, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, meta.DatasetPath, meta.DatasetType, meta.DatasetTask, meta.Version, meta.HashAlgorithm, meta.CreatedAt.Unix()).Scan(&id)
	if err != nil {
		return 0, apperr.Store("init metadata", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, apperr.Store("init metadata", err)
	}

	meta.ID = id
	return id, nil
}

// CacheMetadata implements Store.
func (s *SQLStore) CacheMetadata(ctx context.Context) (meta *CacheMetadata, err error) {
	start := time.Now()
	defer func() { recordQuery("get_metadata", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m CacheMetadata
	var created int64
	err = s.db.QueryRowContext(ctx, `
		SELECT id, dataset_path, dataset_type, dataset_task, version, hash_algorithm, created_at
		FROM cache_metadata ORDER BY id LIMIT 1
	`).Scan(&m.ID, &m.DatasetPath, &m.DatasetType, &m.DatasetTask, &m.Version, &m.HashAlgorithm, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("get metadata", err)
	}

	m.CreatedAt = time.Unix(created, 0).UTC()
	return &m, nil
}

const insertImageSQL = `
	INSERT INTO images (name, filename, extension, relative_path, split, width, height, channels, file_size, file_hash, is_corrupted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id
`

// BeginBatch implements Store.
func (s *SQLStore) BeginBatch(ctx context.Context) (b Batch, err error) {
	start := time.Now()
	defer func() { recordQuery("begin_batch", start, err) }()

	// Transaction lifetime is managed by Commit/Rollback, not a timeout.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Store("begin batch", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertImageSQL)
	if err != nil {
		_ = tx.Rollback()
		return nil, apperr.Store("begin batch", err)
	}

	return &sqlBatch{tx: tx, stmt: stmt, start: start}, nil
}

type sqlBatch struct {
	tx    *sql.Tx
	stmt  *sql.Stmt
	start time.Time
	done  bool
}

func (b *sqlBatch) InsertImage(ctx context.Context, rec *ImageRecord) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("insert_image", start, err) }()

	err = b.stmt.QueryRowContext(ctx,
		rec.Name,
		rec.Filename,
		nullString(rec.Extension),
		rec.RelativePath,
		string(rec.Split),
		nullInt(rec.Width),
		nullInt(rec.Height),
		nullInt(rec.Channels),
		rec.FileSize,
		rec.FileHash,
		rec.IsCorrupted,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperr.New(apperr.KindDuplicate, "insert image", rec.Location(), err)
		}
		return 0, apperr.New(apperr.KindStore, "insert image", rec.Location(), err)
	}

	rec.ID = id
	return id, nil
}

func (b *sqlBatch) Commit() (err error) {
	start := time.Now()
	defer func() { recordQuery("commit", start, err) }()

	b.done = true
	_ = b.stmt.Close()
	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(time.Since(b.start).Seconds())
	if err = b.tx.Commit(); err != nil {
		return apperr.Store("commit batch", err)
	}
	return nil
}

func (b *sqlBatch) Rollback() (err error) {
	if b.done {
		return nil
	}
	start := time.Now()
	defer func() { recordQuery("rollback", start, err) }()

	b.done = true
	_ = b.stmt.Close()
	metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(time.Since(b.start).Seconds())
	if err = b.tx.Rollback(); err != nil {
		return apperr.Store("rollback batch", err)
	}
	return nil
}

const selectImageColumns = `id, name, filename, extension, relative_path, split, width, height, channels, file_size, file_hash, is_corrupted`

// FindByHash implements Store.
func (s *SQLStore) FindByHash(ctx context.Context, hash string) (rec *ImageRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("find_by_hash", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectImageColumns+` FROM images WHERE file_hash = ? ORDER BY id LIMIT 1`, hash)

	rec, err = scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("find by hash", err)
	}
	return rec, nil
}

// CountBySplit implements Store.
func (s *SQLStore) CountBySplit(ctx context.Context) (counts []SplitCount, err error) {
	start := time.Now()
	defer func() { recordQuery("count_by_split", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT split, COUNT(*) FROM images GROUP BY split ORDER BY split`)
	if err != nil {
		return nil, apperr.Store("count by split", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var label string
		var c SplitCount
		if err = rows.Scan(&label, &c.Count); err != nil {
			return nil, apperr.Store("count by split", err)
		}
		c.Split = Split(label)
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, apperr.Store("count by split", err)
	}
	return counts, nil
}

// CountImages implements Store.
func (s *SQLStore) CountImages(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("count_images", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		return 0, apperr.Store("count images", err)
	}
	return n, nil
}

// Reset implements Store.
func (s *SQLStore) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("reset", start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Store("reset", err)
	}
	for _, table := range dropOrder {
		if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			_ = tx.Rollback()
			return apperr.Store("reset", fmt.Errorf("drop %s: %w", table, err))
		}
	}
	if err = tx.Commit(); err != nil {
		return apperr.Store("reset", err)
	}

	logging.Info("Cache %s reset", s.path)
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*ImageRecord, error) {
	var rec ImageRecord
	var ext sql.NullString
	var split string
	var w, h, c sql.NullInt64

	if err := row.Scan(&rec.ID, &rec.Name, &rec.Filename, &ext, &rec.RelativePath, &split,
		&w, &h, &c, &rec.FileSize, &rec.FileHash, &rec.IsCorrupted); err != nil {
		return nil, err
	}

	rec.Extension = ext.String
	rec.Split = ParseSplit(split)
	rec.Width = intPtr(w)
	rec.Height = intPtr(h)
	rec.Channels = intPtr(c)
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// isUniqueViolation recognises UNIQUE constraint failures from either SQLite driver.
func isUniqueViolation(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions checks that the cache directory is writable and
// flags read-only WAL side files, which otherwise surface as opaque write errors.
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat cache directory: %w", err)
	}
	logging.Debug("Cache directory: %s (mode: %v)", dir, dirInfo.Mode())

	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only (mode %v); writes will fail", p, info.Mode())
		}
	}
	return nil
}
