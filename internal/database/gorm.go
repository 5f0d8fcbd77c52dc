package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"datalint/internal/apperr"
	"datalint/internal/logging"
	"datalint/internal/metrics"
)

// Row types mirror sqliteSchema so caches written by either backend share a
// layout. Sized string columns keep MySQL indexes within key length limits.

type cacheMetadataRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	DatasetPath   string `gorm:"not null"`
	DatasetType   string `gorm:"size:64;not null"`
	DatasetTask   string `gorm:"size:64;not null"`
	Version       string `gorm:"size:64;not null"`
	HashAlgorithm string `gorm:"size:16;not null;default:xxh64"`
	CreatedAt     int64  `gorm:"autoCreateTime"`
}

func (cacheMetadataRow) TableName() string { return "cache_metadata" }

type imageRow struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"not null"`
	Filename     string  `gorm:"not null"`
	Extension    *string `gorm:"size:16"`
	RelativePath string  `gorm:"size:768;not null;index:idx_images_relative_path"`
	Split        string  `gorm:"size:16;not null;default:unknown;index:idx_images_split"`
	Width        *int
	Height       *int
	Channels     *int
	FileSize     int64  `gorm:"not null"`
	FileHash     string `gorm:"size:128;not null;index:idx_images_file_hash"`
	IsCorrupted  bool   `gorm:"not null;default:false"`
}

func (imageRow) TableName() string { return "images" }

type labelRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	ImageID      *int64
	Filename     string `gorm:"not null"`
	RelativePath string `gorm:"not null"`
	Format       *string
	FileHash     *string
}

func (labelRow) TableName() string { return "labels" }

type bboxRow struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	ImageID    int64 `gorm:"not null"`
	LabelID    *int64
	ClassID    int `gorm:"not null"`
	ClassName  *string
	XCenter    float64 `gorm:"not null"`
	YCenter    float64 `gorm:"not null"`
	Width      float64 `gorm:"not null"`
	Height     float64 `gorm:"not null"`
	Confidence *float64
}

func (bboxRow) TableName() string { return "bboxes" }

type segmentationRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	ImageID   int64 `gorm:"not null"`
	LabelID   *int64
	ClassID   int `gorm:"not null"`
	ClassName *string
	Points    string `gorm:"not null"`
}

func (segmentationRow) TableName() string { return "segmentations" }

type keypointRow struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	ImageID    int64 `gorm:"not null"`
	LabelID    *int64
	ClassID    int    `gorm:"not null"`
	Points     string `gorm:"not null"`
	Visibility *string
}

func (keypointRow) TableName() string { return "keypoints" }

type classificationRow struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	ImageID    int64 `gorm:"not null"`
	ClassID    int   `gorm:"not null"`
	ClassName  *string
	Confidence *float64
}

func (classificationRow) TableName() string { return "classifications" }

// GormStore implements Store on gorm, for SQLite files or a MySQL server.
type GormStore struct {
	db     *gorm.DB
	driver Driver
	dsn    string
	dedup  DedupPolicy
}

var _ Store = (*GormStore)(nil)

// OpenGorm connects using the gorm dialect for cfg.Driver.
func OpenGorm(ctx context.Context, cfg Config) (*GormStore, error) {
	cfg = cfg.WithDefaults()

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DriverSQLite:
		// Same dialect, pure Go driver registered by modernc.org/sqlite.
		dialector = sqlite.New(sqlite.Config{DriverName: string(DriverSQLite), DSN: sqliteDSN(DriverSQLite, cfg.DSN)})
	default:
		dialector = sqlite.Open(sqliteDSN(DriverSQLite3, cfg.DSN))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         createGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, apperr.Store("open cache", fmt.Errorf("failed to open %s database: %w", cfg.Driver, err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperr.Store("open cache", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, apperr.Store("open cache", fmt.Errorf("failed to connect to database: %w", err))
	}

	logging.Debug("Opened gorm %s store", cfg.Driver)
	return &GormStore{db: db, driver: cfg.Driver, dsn: cfg.DSN, dedup: cfg.Dedup}, nil
}

// gormWriter routes gorm's log output through the leveled logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	logging.Debug(format, args...)
}

func createGormLogger() gormlogger.Interface {
	level := gormlogger.Warn
	if logging.IsDebugEnabled() {
		level = gormlogger.Info
	}
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Migrate implements Store.
func (s *GormStore) Migrate(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("migrate", start, err) }()

	db := s.db.WithContext(ctx)
	if err = db.AutoMigrate(
		&cacheMetadataRow{},
		&imageRow{},
		&labelRow{},
		&bboxRow{},
		&segmentationRow{},
		&keypointRow{},
		&classificationRow{},
	); err != nil {
		return apperr.Store("migrate", fmt.Errorf("auto-migrate: %w", err))
	}

	if s.dedup == DedupUnique && !db.Migrator().HasIndex(&imageRow{}, uniqueHashIndex) {
		if err = db.Exec("CREATE UNIQUE INDEX " + uniqueHashIndex + " ON images(file_hash)").Error; err != nil {
			return apperr.Store("migrate", fmt.Errorf("failed to create unique hash index: %w", err))
		}
	}
	return nil
}

// InitCacheMetadata implements Store.
func (s *GormStore) InitCacheMetadata(ctx context.Context, meta *CacheMetadata) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("init_metadata", start, err) }()

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	row := cacheMetadataRow{
		DatasetPath:   meta.DatasetPath,
		DatasetType:   meta.DatasetType,
		DatasetTask:   meta.DatasetTask,
		Version:       meta.Version,
		HashAlgorithm: meta.HashAlgorithm,
		CreatedAt:     meta.CreatedAt.Unix(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&cacheMetadataRow{}).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyInitialized
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return 0, apperr.Store("init metadata", err)
	}

	meta.ID = row.ID
	return row.ID, nil
}

// CacheMetadata implements Store.
func (s *GormStore) CacheMetadata(ctx context.Context) (meta *CacheMetadata, err error) {
	start := time.Now()
	defer func() { recordQuery("get_metadata", start, err) }()

	var row cacheMetadataRow
	err = s.db.WithContext(ctx).Order("id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("get metadata", err)
	}

	return &CacheMetadata{
		ID:            row.ID,
		DatasetPath:   row.DatasetPath,
		DatasetType:   row.DatasetType,
		DatasetTask:   row.DatasetTask,
		Version:       row.Version,
		HashAlgorithm: row.HashAlgorithm,
		CreatedAt:     time.Unix(row.CreatedAt, 0).UTC(),
	}, nil
}

// BeginBatch implements Store.
func (s *GormStore) BeginBatch(ctx context.Context) (b Batch, err error) {
	start := time.Now()
	defer func() { recordQuery("begin_batch", start, err) }()

	tx := s.db.WithContext(ctx).Begin()
	if err = tx.Error; err != nil {
		return nil, apperr.Store("begin batch", err)
	}
	return &gormBatch{tx: tx, start: start}, nil
}

type gormBatch struct {
	tx    *gorm.DB
	start time.Time
	done  bool
}

func (b *gormBatch) InsertImage(ctx context.Context, rec *ImageRecord) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("insert_image", start, err) }()

	row := toImageRow(rec)
	if err = b.tx.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return 0, apperr.New(apperr.KindDuplicate, "insert image", rec.Location(), err)
		}
		return 0, apperr.New(apperr.KindStore, "insert image", rec.Location(), err)
	}

	rec.ID = row.ID
	return row.ID, nil
}

func (b *gormBatch) Commit() (err error) {
	start := time.Now()
	defer func() { recordQuery("commit", start, err) }()

	b.done = true
	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(time.Since(b.start).Seconds())
	if err = b.tx.Commit().Error; err != nil {
		return apperr.Store("commit batch", err)
	}
	return nil
}

func (b *gormBatch) Rollback() (err error) {
	if b.done {
		return nil
	}
	start := time.Now()
	defer func() { recordQuery("rollback", start, err) }()

	b.done = true
	metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(time.Since(b.start).Seconds())
	if err = b.tx.Rollback().Error; err != nil {
		return apperr.Store("rollback batch", err)
	}
	return nil
}

// FindByHash implements Store.
func (s *GormStore) FindByHash(ctx context.Context, hash string) (rec *ImageRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("find_by_hash", start, err) }()

	var row imageRow
	err = s.db.WithContext(ctx).Where("file_hash = ?", hash).Order("id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("find by hash", err)
	}
	return fromImageRow(&row), nil
}

// CountBySplit implements Store.
func (s *GormStore) CountBySplit(ctx context.Context) (counts []SplitCount, err error) {
	start := time.Now()
	defer func() { recordQuery("count_by_split", start, err) }()

	var rows []struct {
		Split string
		Count int64
	}
	err = s.db.WithContext(ctx).Model(&imageRow{}).
		Select("split, COUNT(*) AS count").
		Group("split").
		Order("split").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Store("count by split", err)
	}

	counts = make([]SplitCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, SplitCount{Split: Split(r.Split), Count: r.Count})
	}
	return counts, nil
}

// CountImages implements Store.
func (s *GormStore) CountImages(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("count_images", start, err) }()

	if err = s.db.WithContext(ctx).Model(&imageRow{}).Count(&n).Error; err != nil {
		return 0, apperr.Store("count images", err)
	}
	return n, nil
}

// Reset implements Store.
func (s *GormStore) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("reset", start, err) }()

	m := s.db.WithContext(ctx).Migrator()
	for _, table := range dropOrder {
		if err = m.DropTable(table); err != nil {
			return apperr.Store("reset", fmt.Errorf("drop %s: %w", table, err))
		}
	}

	logging.Info("Cache reset (%s)", s.driver)
	return nil
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toImageRow(rec *ImageRecord) imageRow {
	row := imageRow{
		Name:         rec.Name,
		Filename:     rec.Filename,
		RelativePath: rec.RelativePath,
		Split:        string(rec.Split),
		Width:        rec.Width,
		Height:       rec.Height,
		Channels:     rec.Channels,
		FileSize:     rec.FileSize,
		FileHash:     rec.FileHash,
		IsCorrupted:  rec.IsCorrupted,
	}
	if rec.Extension != "" {
		ext := rec.Extension
		row.Extension = &ext
	}
	return row
}

func fromImageRow(row *imageRow) *ImageRecord {
	rec := &ImageRecord{
		ID:           row.ID,
		Name:         row.Name,
		Filename:     row.Filename,
		RelativePath: row.RelativePath,
		Split:        ParseSplit(row.Split),
		Width:        row.Width,
		Height:       row.Height,
		Channels:     row.Channels,
		FileSize:     row.FileSize,
		FileHash:     row.FileHash,
		IsCorrupted:  row.IsCorrupted,
	}
	if row.Extension != nil {
		rec.Extension = *row.Extension
	}
	return rec
}
