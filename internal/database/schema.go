package database

// sqliteSchema is the cache layout for the database/sql backend. The gorm
// backend derives the same tables from the row types in gorm.go.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_metadata (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_path TEXT NOT NULL,
	dataset_type TEXT NOT NULL,
	dataset_task TEXT NOT NULL,
	version TEXT NOT NULL,
	hash_algorithm TEXT NOT NULL DEFAULT 'xxh64',
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE TABLE IF NOT EXISTS images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	filename TEXT NOT NULL,
	extension TEXT,
	relative_path TEXT NOT NULL,
	split TEXT NOT NULL DEFAULT 'unknown',
	width INTEGER,
	height INTEGER,
	channels INTEGER,
	file_size INTEGER NOT NULL,
	file_hash TEXT NOT NULL,
	is_corrupted INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_images_file_hash ON images(file_hash);
CREATE INDEX IF NOT EXISTS idx_images_split ON images(split);
CREATE INDEX IF NOT EXISTS idx_images_relative_path ON images(relative_path);

-- Annotation tables are provisioned for label ingestion; the scan never fills them.
CREATE TABLE IF NOT EXISTS labels (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image_id INTEGER REFERENCES images(id),
	filename TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	format TEXT,
	file_hash TEXT
);

CREATE TABLE IF NOT EXISTS bboxes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image_id INTEGER NOT NULL REFERENCES images(id),
	label_id INTEGER REFERENCES labels(id),
	class_id INTEGER NOT NULL,
	class_name TEXT,
	x_center REAL NOT NULL,
	y_center REAL NOT NULL,
	width REAL NOT NULL,
	height REAL NOT NULL,
	confidence REAL
);

CREATE TABLE IF NOT EXISTS segmentations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image_id INTEGER NOT NULL REFERENCES images(id),
	label_id INTEGER REFERENCES labels(id),
	class_id INTEGER NOT NULL,
	class_name TEXT,
	points TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS keypoints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image_id INTEGER NOT NULL REFERENCES images(id),
	label_id INTEGER REFERENCES labels(id),
	class_id INTEGER NOT NULL,
	points TEXT NOT NULL,
	visibility TEXT
);

CREATE TABLE IF NOT EXISTS classifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image_id INTEGER NOT NULL REFERENCES images(id),
	class_id INTEGER NOT NULL,
	class_name TEXT,
	confidence REAL
);
`

const uniqueHashIndex = "idx_images_file_hash_unique"

const createUniqueHashIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ` + uniqueHashIndex + ` ON images(file_hash)`

// dropOrder lists tables children first so foreign keys never block a drop.
var dropOrder = []string{
	"classifications",
	"keypoints",
	"segmentations",
	"bboxes",
	"images",
	"labels",
	"cache_metadata",
}
