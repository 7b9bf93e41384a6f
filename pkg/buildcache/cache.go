// Package buildcache implements the persistent incremental build cache:
// an embedded sqlite store mapping file-identity fingerprints to cached
// parse results, include-graph edges, design-unit edges, and whole-project
// filelists. A warm cache makes a no-change rebuild O(stat) per file.
//
// The store carries a schema version: on mismatch all data rows are
// cleared; on detected corruption the database files are deleted and the
// store is recreated, once.
package buildcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/verilog"
)

// SchemaVersion is bumped whenever a table layout or blob format changes;
// mismatching caches are wiped, not migrated.
const SchemaVersion = "8"

// FileStatEntry is the identity snapshot of one file.
type FileStatEntry struct {
	Path      string
	Inode     uint64
	MtimeSec  int64
	MtimeNsec int64
	Size      int64
	ContentHash string
}

// IncludeDepEntry is one include-graph edge.
type IncludeDepEntry struct {
	SourceHash  string
	IncludePath string
	IncludeHash string
}

// DepEdgeEntry is one design-unit dependency edge.
type DepEdgeEntry struct {
	SourceHash string
	SourceUnit string
	TargetUnit string
}

// FilelistEntry is one cached whole-project filelist.
type FilelistEntry struct {
	FilelistKey string
	FileList    []string
	TopModules  []string
	CreatedAt   int64
}

// Stats reports per-table row counts and the approximate store size.
type Stats struct {
	FileStatCount    int64
	ParseResultCount int64
	IncludeDepCount  int64
	DepEdgeCount     int64
	FilelistCount    int64
	TotalBytes       int64
}

// Cache is an open build-cache handle. Prepared statements are created
// lazily, cached for the lifetime of the handle, and finalized on Close.
type Cache struct {
	db    *sql.DB
	path  string
	stmts map[string]*sql.Stmt
}

// DefaultPath returns $HOME/.loom/cache/loom_cache.db, with the /tmp
// fallback when HOME is unset.
func DefaultPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = "/tmp"
	}
	return filepath.Join(home, ".loom", "cache", "loom_cache.db")
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_info (
  key TEXT PRIMARY KEY,
  value TEXT
);
CREATE TABLE IF NOT EXISTS file_stat (
  path TEXT PRIMARY KEY,
  inode INTEGER,
  mtime_sec INTEGER,
  mtime_nsec INTEGER,
  size INTEGER,
  content_hash TEXT
);
CREATE TABLE IF NOT EXISTS parse_result (
  content_hash TEXT PRIMARY KEY,
  serialized BLOB,
  created_at INTEGER
);
CREATE TABLE IF NOT EXISTS include_dep (
  source_hash TEXT,
  include_path TEXT,
  include_hash TEXT,
  PRIMARY KEY (source_hash, include_path)
);
CREATE INDEX IF NOT EXISTS idx_include_dep_hash ON include_dep(include_hash);
CREATE TABLE IF NOT EXISTS dep_edge (
  source_hash TEXT,
  source_unit TEXT,
  target_unit TEXT,
  PRIMARY KEY (source_hash, source_unit, target_unit)
);
CREATE TABLE IF NOT EXISTS filelist (
  filelist_key TEXT PRIMARY KEY,
  file_list TEXT,
  top_modules TEXT,
  created_at INTEGER
);
`

const clearDataSQL = `
DELETE FROM file_stat;
DELETE FROM parse_result;
DELETE FROM include_dep;
DELETE FROM dep_edge;
DELETE FROM filelist;
`

// Open opens (or creates) the cache at dbPath, applying the runtime
// pragmas and the schema. On any setup failure the database files are
// deleted and setup is retried exactly once.
func Open(dbPath string) (*Cache, error) {
	if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, errors.Wrap(errors.IO, err, "failed to create cache directory: %s", parent)
		}
	}

	c, err := open(dbPath)
	if err == nil {
		return c, nil
	}

	// Corrupt store: delete the data, WAL, and shared-memory files, then
	// retry once.
	_ = os.Remove(dbPath)
	_ = os.Remove(dbPath + "-wal")
	_ = os.Remove(dbPath + "-shm")

	c, err = open(dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "failed to recreate cache database")
	}
	return c, nil
}

func open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	c := &Cache{db: db, path: dbPath, stmts: make(map[string]*sql.Stmt)}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) setup() error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
	} {
		if _, err := c.db.Exec(pragma); err != nil {
			return err
		}
	}

	if _, err := c.db.Exec(schemaSQL); err != nil {
		return err
	}

	var stored string
	err := c.db.QueryRow("SELECT value FROM schema_info WHERE key='version'").Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = c.db.Exec(
			"INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)", SchemaVersion)
		return err
	case err != nil:
		return err
	case stored != SchemaVersion:
		if _, err := c.db.Exec(clearDataSQL); err != nil {
			return err
		}
		_, err = c.db.Exec(
			"INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)", SchemaVersion)
		return err
	}
	return nil
}

// Close finalizes every cached statement and closes the store.
func (c *Cache) Close() {
	for _, stmt := range c.stmts {
		stmt.Close()
	}
	c.stmts = make(map[string]*sql.Stmt)
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}

// IsOpen reports whether the handle is usable.
func (c *Cache) IsOpen() bool { return c.db != nil }

// prepared returns the cached prepared statement for query, creating it on
// first use.
func (c *Cache) prepared(query string) (*sql.Stmt, error) {
	if stmt, ok := c.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := c.db.Prepare(query)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "sqlite prepare failed")
	}
	c.stmts[query] = stmt
	return stmt, nil
}

// --- Stat-based file identity ------------------------------------------

// LookupStat returns the stat record for path, or a NotFound error.
func (c *Cache) LookupStat(path string) (FileStatEntry, error) {
	stmt, err := c.prepared(
		"SELECT path, inode, mtime_sec, mtime_nsec, size, content_hash FROM file_stat WHERE path=?")
	if err != nil {
		return FileStatEntry{}, err
	}

	var e FileStatEntry
	err = stmt.QueryRow(path).Scan(&e.Path, &e.Inode, &e.MtimeSec, &e.MtimeNsec, &e.Size, &e.ContentHash)
	if err == sql.ErrNoRows {
		return FileStatEntry{}, errors.Newf(errors.NotFound, "no stat entry for: %s", path)
	}
	if err != nil {
		return FileStatEntry{}, errors.Wrap(errors.IO, err, "stat lookup failed")
	}
	return e, nil
}

// UpdateStat inserts or replaces a stat record.
func (c *Cache) UpdateStat(entry FileStatEntry) error {
	stmt, err := c.prepared(
		"INSERT OR REPLACE INTO file_stat (path, inode, mtime_sec, mtime_nsec, size, content_hash) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(entry.Path, entry.Inode, entry.MtimeSec, entry.MtimeNsec,
		entry.Size, entry.ContentHash); err != nil {
		return errors.Wrap(errors.IO, err, "failed to update stat")
	}
	return nil
}

// RemoveStat deletes the stat record for path, if present.
func (c *Cache) RemoveStat(path string) error {
	stmt, err := c.prepared("DELETE FROM file_stat WHERE path=?")
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(path); err != nil {
		return errors.Wrap(errors.IO, err, "failed to remove stat")
	}
	return nil
}

// statIdentity extracts (inode, mtime sec+nsec, size) for path.
func statIdentity(path string) (uint64, int64, int64, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, 0, 0, errors.Wrap(errors.IO, err, "cannot stat file: %s", path)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, 0, 0, errors.Newf(errors.IO, "no stat identity for: %s", path)
	}
	return uint64(st.Ino), int64(st.Mtim.Sec), int64(st.Mtim.Nsec), info.Size(), nil
}

// CachedFileHash returns the content hash of path, reading the file only
// when its (inode, mtime, size) identity has changed since the cached
// record was written.
func (c *Cache) CachedFileHash(path string) (string, error) {
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", errors.Newf(errors.IO, "cannot resolve path: %s", path)
	}
	if canonical, err = filepath.Abs(canonical); err != nil {
		return "", errors.Wrap(errors.IO, err, "cannot resolve path: %s", path)
	}

	inode, mtimeSec, mtimeNsec, size, err := statIdentity(canonical)
	if err != nil {
		return "", err
	}

	if cached, err := c.LookupStat(canonical); err == nil {
		if cached.Inode == inode && cached.MtimeSec == mtimeSec &&
			cached.MtimeNsec == mtimeNsec && cached.Size == size {
			return cached.ContentHash, nil
		}
	}

	f, err := os.Open(canonical)
	if err != nil {
		return "", errors.Wrap(errors.IO, err, "cannot read file: %s", canonical)
	}
	hasher := sha256.New()
	_, copyErr := io.Copy(hasher, f)
	f.Close()
	if copyErr != nil {
		return "", errors.Wrap(errors.IO, copyErr, "cannot read file: %s", canonical)
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	if err := c.UpdateStat(FileStatEntry{
		Path:        canonical,
		Inode:       inode,
		MtimeSec:    mtimeSec,
		MtimeNsec:   mtimeNsec,
		Size:        size,
		ContentHash: hash,
	}); err != nil {
		return "", err
	}
	return hash, nil
}

// --- Parse results -----------------------------------------------------

// LookupParse returns the cached parse result for a content hash, or a
// NotFound error.
func (c *Cache) LookupParse(contentHash string) (*verilog.ParseResult, error) {
	stmt, err := c.prepared("SELECT serialized FROM parse_result WHERE content_hash=?")
	if err != nil {
		return nil, err
	}

	var blob []byte
	err = stmt.QueryRow(contentHash).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.NotFound, "no parse cache for: %s", contentHash)
	}
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "parse lookup failed")
	}
	if len(blob) == 0 {
		return nil, errors.Newf(errors.IO, "empty serialized data for: %s", contentHash)
	}
	return DeserializeParseResult(blob)
}

// StoreParse serializes and stores a parse result under a content hash.
func (c *Cache) StoreParse(contentHash string, result *verilog.ParseResult) error {
	stmt, err := c.prepared(
		"INSERT OR REPLACE INTO parse_result (content_hash, serialized, created_at) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(contentHash, SerializeParseResult(result), time.Now().Unix()); err != nil {
		return errors.Wrap(errors.IO, err, "failed to store parse result")
	}
	return nil
}

// --- Include-graph edges -----------------------------------------------

// Includes returns the include edges of a source hash.
func (c *Cache) Includes(sourceHash string) ([]IncludeDepEntry, error) {
	stmt, err := c.prepared(
		"SELECT source_hash, include_path, include_hash FROM include_dep WHERE source_hash=?")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(sourceHash)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "include lookup failed")
	}
	defer rows.Close()

	var out []IncludeDepEntry
	for rows.Next() {
		var e IncludeDepEntry
		if err := rows.Scan(&e.SourceHash, &e.IncludePath, &e.IncludeHash); err != nil {
			return nil, errors.Wrap(errors.IO, err, "include scan failed")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// StoreIncludes replaces the include edges of a source hash.
func (c *Cache) StoreIncludes(sourceHash string, deps []IncludeDepEntry) error {
	del, err := c.prepared("DELETE FROM include_dep WHERE source_hash=?")
	if err != nil {
		return err
	}
	ins, err := c.prepared(
		"INSERT INTO include_dep (source_hash, include_path, include_hash) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}

	if _, err := del.Exec(sourceHash); err != nil {
		return errors.Wrap(errors.IO, err, "failed to clear include deps")
	}
	for _, d := range deps {
		if _, err := ins.Exec(d.SourceHash, d.IncludePath, d.IncludeHash); err != nil {
			return errors.Wrap(errors.IO, err, "failed to insert include dep")
		}
	}
	return nil
}

// FindIncluders is the reverse index: every source hash that includes the
// given content hash.
func (c *Cache) FindIncluders(includeHash string) ([]string, error) {
	stmt, err := c.prepared(
		"SELECT DISTINCT source_hash FROM include_dep WHERE include_hash=?")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(includeHash)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "includer lookup failed")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(errors.IO, err, "includer scan failed")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- Design-unit edges -------------------------------------------------

// Edges returns the design-unit edges of a source hash.
func (c *Cache) Edges(sourceHash string) ([]DepEdgeEntry, error) {
	stmt, err := c.prepared(
		"SELECT source_hash, source_unit, target_unit FROM dep_edge WHERE source_hash=?")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(sourceHash)
	if err != nil {
		return nil, errors.Wrap(errors.IO, err, "edge lookup failed")
	}
	defer rows.Close()

	var out []DepEdgeEntry
	for rows.Next() {
		var e DepEdgeEntry
		if err := rows.Scan(&e.SourceHash, &e.SourceUnit, &e.TargetUnit); err != nil {
			return nil, errors.Wrap(errors.IO, err, "edge scan failed")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// StoreEdges replaces the design-unit edges of a source hash.
func (c *Cache) StoreEdges(sourceHash string, edges []DepEdgeEntry) error {
	del, err := c.prepared("DELETE FROM dep_edge WHERE source_hash=?")
	if err != nil {
		return err
	}
	ins, err := c.prepared(
		"INSERT INTO dep_edge (source_hash, source_unit, target_unit) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}

	if _, err := del.Exec(sourceHash); err != nil {
		return errors.Wrap(errors.IO, err, "failed to clear dep edges")
	}
	for _, e := range edges {
		if _, err := ins.Exec(e.SourceHash, e.SourceUnit, e.TargetUnit); err != nil {
			return errors.Wrap(errors.IO, err, "failed to insert dep edge")
		}
	}
	return nil
}

// --- Filelists ---------------------------------------------------------

// LookupFilelist returns the cached filelist for a key, or NotFound.
func (c *Cache) LookupFilelist(key string) (FilelistEntry, error) {
	stmt, err := c.prepared(
		"SELECT filelist_key, file_list, top_modules, created_at FROM filelist WHERE filelist_key=?")
	if err != nil {
		return FilelistEntry{}, err
	}

	var e FilelistEntry
	var files, tops string
	err = stmt.QueryRow(key).Scan(&e.FilelistKey, &files, &tops, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return FilelistEntry{}, errors.Newf(errors.NotFound, "no filelist cache for key: %s", key)
	}
	if err != nil {
		return FilelistEntry{}, errors.Wrap(errors.IO, err, "filelist lookup failed")
	}
	e.FileList = splitList(files)
	e.TopModules = splitList(tops)
	return e, nil
}

// StoreFilelist stores a filelist entry, stamping its creation time.
func (c *Cache) StoreFilelist(entry FilelistEntry) error {
	stmt, err := c.prepared(
		"INSERT OR REPLACE INTO filelist (filelist_key, file_list, top_modules, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(entry.FilelistKey, joinList(entry.FileList),
		joinList(entry.TopModules), time.Now().Unix()); err != nil {
		return errors.Wrap(errors.IO, err, "failed to store filelist")
	}
	return nil
}

func joinList(v []string) string { return strings.Join(v, ",") }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// --- Maintenance -------------------------------------------------------

// Prune removes parse-result, include-dep, and dep-edge rows whose source
// hash is no longer referenced from the stat table.
func (c *Cache) Prune() error {
	for _, q := range []string{
		"DELETE FROM parse_result WHERE content_hash NOT IN (SELECT content_hash FROM file_stat)",
		"DELETE FROM include_dep WHERE source_hash NOT IN (SELECT content_hash FROM file_stat)",
		"DELETE FROM dep_edge WHERE source_hash NOT IN (SELECT content_hash FROM file_stat)",
	} {
		if _, err := c.db.Exec(q); err != nil {
			return errors.Wrap(errors.IO, err, "prune failed")
		}
	}
	return nil
}

// Clear removes every data row, leaving the schema intact.
func (c *Cache) Clear() error {
	if _, err := c.db.Exec(clearDataSQL); err != nil {
		return errors.Wrap(errors.IO, err, "clear failed")
	}
	return nil
}

// Vacuum reclaims space.
func (c *Cache) Vacuum() error {
	if _, err := c.db.Exec("VACUUM"); err != nil {
		return errors.Wrap(errors.IO, err, "vacuum failed")
	}
	return nil
}

// GetStats returns per-table row counts and the approximate byte size.
func (c *Cache) GetStats() (Stats, error) {
	var stats Stats
	for _, entry := range []struct {
		table string
		out   *int64
	}{
		{"file_stat", &stats.FileStatCount},
		{"parse_result", &stats.ParseResultCount},
		{"include_dep", &stats.IncludeDepCount},
		{"dep_edge", &stats.DepEdgeCount},
		{"filelist", &stats.FilelistCount},
	} {
		if err := c.db.QueryRow("SELECT COUNT(*) FROM " + entry.table).Scan(entry.out); err != nil {
			return Stats{}, errors.Wrap(errors.IO, err, "failed to count %s", entry.table)
		}
	}

	// Approximate size from the page counters; failure here is not fatal.
	_ = c.db.QueryRow(
		"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()",
	).Scan(&stats.TotalBytes)

	return stats, nil
}
