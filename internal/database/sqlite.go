package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"sweeper/internal/model"
	"sweeper/internal/sweep"
)

// SQLiteStore implements sweep.Store over a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ sweep.Store = (*SQLiteStore)(nil)

// OpenConnection opens the sqlite database at filename. Use ":memory:" for
// an in-memory database (tests).
func OpenConnection(filename string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", filename+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", filename, err)
	}
	// sqlite handles one writer; a single connection also keeps :memory:
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database %q: %w", filename, err)
	}
	return db, nil
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// wrapWriteErr maps sqlite resource errors onto sweep.ErrResourceExhausted
// so the scanner's batch recovery can recognize them.
func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrNomem, sqlite3.ErrFull, sqlite3.ErrTooBig:
			return fmt.Errorf("%w: %v", sweep.ErrResourceExhausted, err)
		}
	}
	return err
}

const photoColumns = "id, path, taken_at, year_group, month_group, status"

func scanPhoto(row interface{ Scan(...any) error }) (model.Photo, error) {
	var p model.Photo
	err := row.Scan(&p.ID, &p.Path, &p.TakenAt, &p.YearGroup, &p.MonthGroup, &p.Status)
	return p, err
}

func (s *SQLiteStore) GetPhotoByID(id int64) (*model.Photo, error) {
	row := s.db.QueryRow("SELECT "+photoColumns+" FROM photos WHERE id = ?", id)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying photo %d: %w", id, err)
	}
	return &p, nil
}

func (s *SQLiteStore) GetPhotosByIDs(ids []int64) ([]model.Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + photoColumns + " FROM photos WHERE id IN (" + placeholders(len(ids)) + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %d photos: %w", len(ids), err)
	}
	defer rows.Close()
	return collectPhotos(rows)
}

func (s *SQLiteStore) InsertPhotos(photos []model.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO photos (" + photoColumns + ") VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range photos {
		if _, err := stmt.Exec(p.ID, p.Path, p.TakenAt, p.YearGroup, p.MonthGroup, p.Status); err != nil {
			return fmt.Errorf("inserting photo %d: %w", p.ID, wrapWriteErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing insert: %w", wrapWriteErr(err))
	}
	return nil
}

func (s *SQLiteStore) UpdatePhotos(photos []model.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning update transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE photos SET path = ?, taken_at = ?, year_group = ?, month_group = ?, status = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing update: %w", err)
	}
	defer stmt.Close()
	for _, p := range photos {
		if _, err := stmt.Exec(p.Path, p.TakenAt, p.YearGroup, p.MonthGroup, p.Status, p.ID); err != nil {
			return fmt.Errorf("updating photo %d: %w", p.ID, wrapWriteErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", wrapWriteErr(err))
	}
	return nil
}

func (s *SQLiteStore) UpdatePhotoStatus(id int64, status model.Status) error {
	if _, err := s.db.Exec("UPDATE photos SET status = ? WHERE id = ?", status, id); err != nil {
		return fmt.Errorf("updating status of photo %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) DeletePhoto(id int64) error {
	if _, err := s.db.Exec("DELETE FROM photos WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting photo %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) DeletePhotosByIDs(ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.Exec("DELETE FROM photos WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("deleting %d photos: %w", len(ids), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted photos: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) PhotosByGroup(key model.GroupKey) ([]model.Photo, error) {
	query := "SELECT " + photoColumns + " FROM photos WHERE year_group = ?"
	args := []any{key.Year}
	if key.Month != "" {
		query += " AND month_group = ?"
		args = append(args, key.Month)
	}
	query += " ORDER BY taken_at DESC"
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying photos of group %q: %w", key.String(), err)
	}
	defer rows.Close()
	return collectPhotos(rows)
}

func (s *SQLiteStore) PhotosByStatus(status model.Status) ([]model.Photo, error) {
	rows, err := s.db.Query("SELECT "+photoColumns+" FROM photos WHERE status = ? ORDER BY taken_at DESC", status)
	if err != nil {
		return nil, fmt.Errorf("querying photos with status %s: %w", status, err)
	}
	defer rows.Close()
	return collectPhotos(rows)
}

func (s *SQLiteStore) CountPhotos(key model.GroupKey) (int, error) {
	query := "SELECT COUNT(*) FROM photos WHERE year_group = ?"
	args := []any{key.Year}
	if key.Month != "" {
		query += " AND month_group = ?"
		args = append(args, key.Month)
	}
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting photos of group %q: %w", key.String(), err)
	}
	return n, nil
}

func (s *SQLiteStore) CountPhotosByStatus(key model.GroupKey, status model.Status) (int, error) {
	query := "SELECT COUNT(*) FROM photos WHERE year_group = ? AND status = ?"
	args := []any{key.Year, status}
	if key.Month != "" {
		query += " AND month_group = ?"
		args = append(args, key.Month)
	}
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s photos of group %q: %w", status, key.String(), err)
	}
	return n, nil
}

func (s *SQLiteStore) CountAllByStatus(status model.Status) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM photos WHERE status = ?", status).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s photos: %w", status, err)
	}
	return n, nil
}

func (s *SQLiteStore) PhotoTimeRange(key model.GroupKey) (int64, int64, error) {
	query := "SELECT COALESCE(MAX(taken_at), 0), COALESCE(MIN(taken_at), 0) FROM photos WHERE year_group = ?"
	args := []any{key.Year}
	if key.Month != "" {
		query += " AND month_group = ?"
		args = append(args, key.Month)
	}
	var latest, earliest int64
	if err := s.db.QueryRow(query, args...).Scan(&latest, &earliest); err != nil {
		return 0, 0, fmt.Errorf("querying time range of group %q: %w", key.String(), err)
	}
	return latest, earliest, nil
}

func (s *SQLiteStore) LatestCover(key model.GroupKey) (*model.Photo, error) {
	query := "SELECT " + photoColumns + " FROM photos WHERE year_group = ?"
	args := []any{key.Year}
	if key.Month != "" {
		query += " AND month_group = ?"
		args = append(args, key.Month)
	}
	query += ` ORDER BY CASE status WHEN 0 THEN 0 WHEN 1 THEN 1 WHEN 2 THEN 2 ELSE 3 END, taken_at DESC LIMIT 1`
	row := s.db.QueryRow(query, args...)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting cover of group %q: %w", key.String(), err)
	}
	return &p, nil
}

const yearAggregateQuery = `
SELECT p.year_group,
       MAX(p.taken_at),
       MIN(p.taken_at),
       COUNT(*),
       SUM(CASE WHEN p.status = 2 THEN 1 ELSE 0 END),
       SUM(CASE WHEN p.status = 1 THEN 1 ELSE 0 END),
       COALESCE((SELECT c.path FROM photos c WHERE c.year_group = p.year_group AND c.status != 2
                 ORDER BY c.taken_at DESC LIMIT 1), ''),
       COALESCE((SELECT c.id FROM photos c WHERE c.year_group = p.year_group AND c.status != 2
                 ORDER BY c.taken_at DESC LIMIT 1), 0)
FROM photos p
GROUP BY p.year_group
ORDER BY p.year_group`

const monthAggregateQuery = `
SELECT p.year_group,
       p.month_group,
       MAX(p.taken_at),
       MIN(p.taken_at),
       COUNT(*),
       SUM(CASE WHEN p.status = 2 THEN 1 ELSE 0 END),
       SUM(CASE WHEN p.status = 1 THEN 1 ELSE 0 END),
       COALESCE((SELECT c.path FROM photos c WHERE c.year_group = p.year_group AND c.month_group = p.month_group AND c.status != 2
                 ORDER BY c.taken_at DESC LIMIT 1), ''),
       COALESCE((SELECT c.id FROM photos c WHERE c.year_group = p.year_group AND c.month_group = p.month_group AND c.status != 2
                 ORDER BY c.taken_at DESC LIMIT 1), 0)
FROM photos p
GROUP BY p.year_group, p.month_group
ORDER BY p.year_group, MAX(p.taken_at)`

func (s *SQLiteStore) AggregateYearGroups() ([]model.PhotoGroup, error) {
	rows, err := s.db.Query(yearAggregateQuery)
	if err != nil {
		return nil, fmt.Errorf("aggregating year groups: %w", err)
	}
	defer rows.Close()

	var groups []model.PhotoGroup
	for rows.Next() {
		var g model.PhotoGroup
		if err := rows.Scan(&g.YearGroup, &g.LatestAt, &g.EarliestAt, &g.PhotoCount,
			&g.TrashCount, &g.KeepCount, &g.CoverPath, &g.CoverID); err != nil {
			return nil, fmt.Errorf("scanning year group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating year groups: %w", err)
	}
	return groups, nil
}

func (s *SQLiteStore) AggregateMonthGroups() ([]model.PhotoGroup, error) {
	rows, err := s.db.Query(monthAggregateQuery)
	if err != nil {
		return nil, fmt.Errorf("aggregating month groups: %w", err)
	}
	defer rows.Close()

	var groups []model.PhotoGroup
	for rows.Next() {
		var g model.PhotoGroup
		if err := rows.Scan(&g.YearGroup, &g.MonthGroup, &g.LatestAt, &g.EarliestAt, &g.PhotoCount,
			&g.TrashCount, &g.KeepCount, &g.CoverPath, &g.CoverID); err != nil {
			return nil, fmt.Errorf("scanning month group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating month groups: %w", err)
	}
	return groups, nil
}

func (s *SQLiteStore) DeleteAllGroups() (int, error) {
	res, err := s.db.Exec("DELETE FROM photo_groups")
	if err != nil {
		return 0, fmt.Errorf("clearing photo groups: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared groups: %w", err)
	}
	return int(n), nil
}

const groupColumns = "group_key, group_type, year_group, month_group, latest_at, earliest_at, photo_count, trash_count, keep_count, cover_path, cover_id, display_name"

func (s *SQLiteStore) InsertGroups(groups []model.PhotoGroup) error {
	if len(groups) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning group insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO photo_groups (" + groupColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing group insert: %w", err)
	}
	defer stmt.Close()
	for _, g := range groups {
		if _, err := stmt.Exec(g.GroupKey, g.GroupType, g.YearGroup, g.MonthGroup, g.LatestAt, g.EarliestAt,
			g.PhotoCount, g.TrashCount, g.KeepCount, g.CoverPath, g.CoverID, g.DisplayName); err != nil {
			return fmt.Errorf("inserting group %q: %w", g.GroupKey, wrapWriteErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing group insert: %w", wrapWriteErr(err))
	}
	return nil
}

func (s *SQLiteStore) UpsertGroup(g model.PhotoGroup) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO photo_groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		g.GroupKey, g.GroupType, g.YearGroup, g.MonthGroup, g.LatestAt, g.EarliestAt,
		g.PhotoCount, g.TrashCount, g.KeepCount, g.CoverPath, g.CoverID, g.DisplayName)
	if err != nil {
		return fmt.Errorf("upserting group %q: %w", g.GroupKey, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteGroup(key string, groupType model.GroupType) error {
	if _, err := s.db.Exec("DELETE FROM photo_groups WHERE group_key = ? AND group_type = ?", key, groupType); err != nil {
		return fmt.Errorf("deleting group %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) GroupByKey(key string) (*model.PhotoGroup, error) {
	row := s.db.QueryRow("SELECT "+groupColumns+" FROM photo_groups WHERE group_key = ?", key)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying group %q: %w", key, err)
	}
	return &g, nil
}

func (s *SQLiteStore) GroupsByType(t model.GroupType, ascending bool) ([]model.PhotoGroup, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	rows, err := s.db.Query("SELECT "+groupColumns+" FROM photo_groups WHERE group_type = ? ORDER BY latest_at "+order, t)
	if err != nil {
		return nil, fmt.Errorf("querying %s groups: %w", t, err)
	}
	defer rows.Close()

	var groups []model.PhotoGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}
	return groups, nil
}

func (s *SQLiteStore) CountGroupsByType(t model.GroupType) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM photo_groups WHERE group_type = ?", t).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s groups: %w", t, err)
	}
	return n, nil
}

func scanGroup(row interface{ Scan(...any) error }) (model.PhotoGroup, error) {
	var g model.PhotoGroup
	err := row.Scan(&g.GroupKey, &g.GroupType, &g.YearGroup, &g.MonthGroup, &g.LatestAt, &g.EarliestAt,
		&g.PhotoCount, &g.TrashCount, &g.KeepCount, &g.CoverPath, &g.CoverID, &g.DisplayName)
	return g, err
}

func collectPhotos(rows *sql.Rows) ([]model.Photo, error) {
	var photos []model.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating photos: %w", err)
	}
	return photos, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
