// Package sandbox is a local stand-in for the hospital REST backend. It
// serves the same endpoints from a SQLite database so the console can be
// tried and tested without the real service.
package sandbox

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iksnae/hospital-console/internal/api"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'staff',
	active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS wards (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	floor INTEGER NOT NULL DEFAULT 0,
	capacity INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS beds (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	bed_number TEXT NOT NULL,
	ward_id INTEGER NOT NULL REFERENCES wards(id),
	status TEXT NOT NULL DEFAULT 'available',
	patient_name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS system_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// DB is the sandbox's storage.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// An empty path or ":memory:" keeps everything in memory.
func Open(path string) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{db: db, now: time.Now}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) stamp() int64 {
	return d.now().Unix()
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return n, nil
}

func formatID(n int64) api.ID {
	return api.ID(strconv.FormatInt(n, 10))
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Users

func scanUser(row interface{ Scan(...any) error }) (api.User, error) {
	var (
		u      api.User
		id, ts int64
		active int
	)
	if err := row.Scan(&id, &u.Username, &u.Email, &u.FullName, &u.Role, &active, &ts); err != nil {
		return api.User{}, err
	}
	u.ID = formatID(id)
	u.Active = active != 0
	u.CreatedAt = time.Unix(ts, 0).UTC()
	return u, nil
}

const userColumns = "id, username, email, full_name, role, active, created_at"

func (d *DB) ListUsers() ([]api.User, error) {
	rows, err := d.db.Query("SELECT " + userColumns + " FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	users := []api.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *DB) GetUser(id string) (api.User, error) {
	n, err := parseID(id)
	if err != nil {
		return api.User{}, err
	}
	u, err := scanUser(d.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", n))
	if errors.Is(err, sql.ErrNoRows) {
		return api.User{}, ErrNotFound
	}
	return u, err
}

func (d *DB) CreateUser(in api.UserInput) (api.User, error) {
	active := in.Active == nil || *in.Active
	role := in.Role
	if role == "" {
		role = "staff"
	}
	res, err := d.db.Exec(
		"INSERT INTO users (username, email, full_name, role, active, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		in.Username, in.Email, in.FullName, role, boolInt(active), d.stamp())
	if err != nil {
		return api.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return d.GetUser(strconv.FormatInt(id, 10))
}

func (d *DB) UpdateUser(id string, in api.UserInput) (api.User, error) {
	cur, err := d.GetUser(id)
	if err != nil {
		return api.User{}, err
	}
	if in.Username != "" {
		cur.Username = in.Username
	}
	if in.Email != "" {
		cur.Email = in.Email
	}
	if in.FullName != "" {
		cur.FullName = in.FullName
	}
	if in.Role != "" {
		cur.Role = in.Role
	}
	if in.Active != nil {
		cur.Active = *in.Active
	}
	_, err = d.db.Exec("UPDATE users SET username = ?, email = ?, full_name = ?, role = ?, active = ? WHERE id = ?",
		cur.Username, cur.Email, cur.FullName, cur.Role, boolInt(cur.Active), string(cur.ID))
	if err != nil {
		return api.User{}, fmt.Errorf("update user: %w", err)
	}
	return cur, nil
}

func (d *DB) DeleteUser(id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(d.db.Exec("DELETE FROM users WHERE id = ?", n))
}

// Wards

const wardColumns = `w.id, w.name, w.department, w.floor, w.capacity, w.description,
	(SELECT COUNT(*) FROM beds b WHERE b.ward_id = w.id AND b.status = 'occupied')`

func scanWard(row interface{ Scan(...any) error }) (api.Ward, error) {
	var (
		w  api.Ward
		id int64
	)
	if err := row.Scan(&id, &w.Name, &w.Department, &w.Floor, &w.Capacity, &w.Description, &w.Occupied); err != nil {
		return api.Ward{}, err
	}
	w.ID = formatID(id)
	return w, nil
}

func (d *DB) ListWards() ([]api.Ward, error) {
	rows, err := d.db.Query("SELECT " + wardColumns + " FROM wards w ORDER BY w.id")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	wards := []api.Ward{}
	for rows.Next() {
		w, err := scanWard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		wards = append(wards, w)
	}
	return wards, rows.Err()
}

func (d *DB) GetWard(id string) (api.Ward, error) {
	n, err := parseID(id)
	if err != nil {
		return api.Ward{}, err
	}
	w, err := scanWard(d.db.QueryRow("SELECT "+wardColumns+" FROM wards w WHERE w.id = ?", n))
	if errors.Is(err, sql.ErrNoRows) {
		return api.Ward{}, ErrNotFound
	}
	return w, err
}

func (d *DB) CreateWard(in api.WardInput) (api.Ward, error) {
	res, err := d.db.Exec("INSERT INTO wards (name, department, floor, capacity, description) VALUES (?, ?, ?, ?, ?)",
		in.Name, in.Department, deref(in.Floor), deref(in.Capacity), in.Description)
	if err != nil {
		return api.Ward{}, fmt.Errorf("insert ward: %w", err)
	}
	id, _ := res.LastInsertId()
	return d.GetWard(strconv.FormatInt(id, 10))
}

func (d *DB) UpdateWard(id string, in api.WardInput) (api.Ward, error) {
	cur, err := d.GetWard(id)
	if err != nil {
		return api.Ward{}, err
	}
	if in.Name != "" {
		cur.Name = in.Name
	}
	if in.Department != "" {
		cur.Department = in.Department
	}
	if in.Floor != nil {
		cur.Floor = *in.Floor
	}
	if in.Capacity != nil {
		cur.Capacity = *in.Capacity
	}
	if in.Description != "" {
		cur.Description = in.Description
	}
	_, err = d.db.Exec("UPDATE wards SET name = ?, department = ?, floor = ?, capacity = ?, description = ? WHERE id = ?",
		cur.Name, cur.Department, cur.Floor, cur.Capacity, cur.Description, string(cur.ID))
	if err != nil {
		return api.Ward{}, fmt.Errorf("update ward: %w", err)
	}
	return cur, nil
}

// DeleteWard refuses to delete a ward that still has beds.
func (d *DB) DeleteWard(id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	var beds int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM beds WHERE ward_id = ?", n).Scan(&beds); err != nil {
		return err
	}
	if beds > 0 {
		return fmt.Errorf("%w: ward still has %d beds", ErrConflict, beds)
	}
	return affected(d.db.Exec("DELETE FROM wards WHERE id = ?", n))
}

// ErrConflict is returned when a change would break referential rules.
var ErrConflict = errors.New("conflict")

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Beds

const bedColumns = "id, bed_number, ward_id, status, patient_name"

func scanBed(row interface{ Scan(...any) error }) (api.Bed, error) {
	var (
		b          api.Bed
		id, wardID int64
	)
	if err := row.Scan(&id, &b.Number, &wardID, &b.Status, &b.PatientName); err != nil {
		return api.Bed{}, err
	}
	b.ID, b.WardID = formatID(id), formatID(wardID)
	return b, nil
}

func (d *DB) ListBeds(f api.BedFilter) ([]api.Bed, error) {
	var (
		where []string
		args  []any
	)
	if f.WardID != "" {
		where = append(where, "ward_id = ?")
		args = append(args, string(f.WardID))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	q := "SELECT " + bedColumns + " FROM beds"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := d.db.Query(q+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	beds := []api.Bed{}
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		beds = append(beds, b)
	}
	return beds, rows.Err()
}

func (d *DB) GetBed(id string) (api.Bed, error) {
	n, err := parseID(id)
	if err != nil {
		return api.Bed{}, err
	}
	b, err := scanBed(d.db.QueryRow("SELECT "+bedColumns+" FROM beds WHERE id = ?", n))
	if errors.Is(err, sql.ErrNoRows) {
		return api.Bed{}, ErrNotFound
	}
	return b, err
}

func (d *DB) CreateBed(in api.BedInput) (api.Bed, error) {
	if _, err := d.GetWard(string(in.WardID)); err != nil {
		return api.Bed{}, fmt.Errorf("%w: ward %s does not exist", ErrConflict, in.WardID)
	}
	status := in.Status
	if status == "" {
		status = api.BedAvailable
	}
	patient := ""
	if in.PatientName != nil {
		patient = *in.PatientName
	}
	res, err := d.db.Exec("INSERT INTO beds (bed_number, ward_id, status, patient_name) VALUES (?, ?, ?, ?)",
		in.Number, string(in.WardID), status, patient)
	if err != nil {
		return api.Bed{}, fmt.Errorf("insert bed: %w", err)
	}
	id, _ := res.LastInsertId()
	return d.GetBed(strconv.FormatInt(id, 10))
}

func (d *DB) UpdateBed(id string, in api.BedInput) (api.Bed, error) {
	cur, err := d.GetBed(id)
	if err != nil {
		return api.Bed{}, err
	}
	if in.Number != "" {
		cur.Number = in.Number
	}
	if in.WardID != "" {
		if _, err := d.GetWard(string(in.WardID)); err != nil {
			return api.Bed{}, fmt.Errorf("%w: ward %s does not exist", ErrConflict, in.WardID)
		}
		cur.WardID = in.WardID
	}
	if in.Status != "" {
		cur.Status = in.Status
	}
	if in.PatientName != nil {
		cur.PatientName = *in.PatientName
	}
	_, err = d.db.Exec("UPDATE beds SET bed_number = ?, ward_id = ?, status = ?, patient_name = ? WHERE id = ?",
		cur.Number, string(cur.WardID), cur.Status, cur.PatientName, string(cur.ID))
	if err != nil {
		return api.Bed{}, fmt.Errorf("update bed: %w", err)
	}
	return cur, nil
}

func (d *DB) DeleteBed(id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(d.db.Exec("DELETE FROM beds WHERE id = ?", n))
}

// Logs

const logColumns = "id, level, message, source, user_id, created_at"

func scanLog(row interface{ Scan(...any) error }) (api.SystemLog, error) {
	var (
		l      api.SystemLog
		id, ts int64
		userID string
	)
	if err := row.Scan(&id, &l.Level, &l.Message, &l.Source, &userID, &ts); err != nil {
		return api.SystemLog{}, err
	}
	l.ID, l.UserID = formatID(id), api.ID(userID)
	l.CreatedAt = time.Unix(ts, 0).UTC()
	return l, nil
}

// ListLogs returns the newest entries first.
func (d *DB) ListLogs(f api.LogFilter) ([]api.SystemLog, error) {
	q := "SELECT " + logColumns + " FROM system_logs"
	var args []any
	if f.Level != "" {
		q += " WHERE level = ?"
		args = append(args, f.Level)
	}
	q += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := d.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	logs := []api.SystemLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (d *DB) GetLog(id string) (api.SystemLog, error) {
	n, err := parseID(id)
	if err != nil {
		return api.SystemLog{}, err
	}
	l, err := scanLog(d.db.QueryRow("SELECT "+logColumns+" FROM system_logs WHERE id = ?", n))
	if errors.Is(err, sql.ErrNoRows) {
		return api.SystemLog{}, ErrNotFound
	}
	return l, err
}

// AddLog records a system log entry.
func (d *DB) AddLog(level, source, message, userID string) error {
	_, err := d.db.Exec("INSERT INTO system_logs (level, message, source, user_id, created_at) VALUES (?, ?, ?, ?, ?)",
		level, message, source, userID, d.stamp())
	return err
}

func (d *DB) DeleteLog(id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(d.db.Exec("DELETE FROM system_logs WHERE id = ?", n))
}

// Chat

// ChatMessage is a stored chat turn.
type ChatMessage struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ChatSession is a stored chat session with its counts.
type ChatSession struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	LastMessage  string `json:"last_message,omitempty"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// CreateSession opens a chat session titled after its first message.
func (d *DB) CreateSession(title string) (string, error) {
	id := uuid.NewString()
	now := d.stamp()
	if _, err := d.db.Exec("INSERT INTO chat_sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		id, title, now, now); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// SessionExists reports whether id is a stored session.
func (d *DB) SessionExists(id string) (bool, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM chat_sessions WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

// SessionTitle returns the title of session id.
func (d *DB) SessionTitle(id string) (string, error) {
	var title string
	err := d.db.QueryRow("SELECT title FROM chat_sessions WHERE id = ?", id).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return title, err
}

// AppendMessage adds a turn to session id.
func (d *DB) AppendMessage(sessionID, role, content string) error {
	now := d.stamp()
	if _, err := d.db.Exec("INSERT INTO chat_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		sessionID, role, content, now); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	_, err := d.db.Exec("UPDATE chat_sessions SET updated_at = ? WHERE id = ?", now, sessionID)
	return err
}

// Messages returns the turns of session id in order.
func (d *DB) Messages(sessionID string) ([]ChatMessage, error) {
	ok, err := d.SessionExists(sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	rows, err := d.db.Query("SELECT id, role, content, created_at FROM chat_messages WHERE session_id = ? ORDER BY id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	msgs := []ChatMessage{}
	for rows.Next() {
		var (
			m  ChatMessage
			ts int64
		)
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		m.Timestamp = time.Unix(ts, 0).UTC().Format(time.RFC3339)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Sessions lists chat sessions, most recently updated first.
func (d *DB) Sessions() ([]ChatSession, error) {
	rows, err := d.db.Query(`
		SELECT s.id, s.title, s.updated_at,
			(SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id),
			COALESCE((SELECT content FROM chat_messages m WHERE m.session_id = s.id ORDER BY m.id DESC LIMIT 1), '')
		FROM chat_sessions s ORDER BY s.updated_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	sessions := []ChatSession{}
	for rows.Next() {
		var (
			s  ChatSession
			ts int64
		)
		if err := rows.Scan(&s.SessionID, &s.Title, &ts, &s.MessageCount, &s.LastMessage); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		s.UpdatedAt = time.Unix(ts, 0).UTC().Format(time.RFC3339)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages.
func (d *DB) DeleteSession(id string) error {
	if _, err := d.db.Exec("DELETE FROM chat_messages WHERE session_id = ?", id); err != nil {
		return err
	}
	return affected(d.db.Exec("DELETE FROM chat_sessions WHERE id = ?", id))
}

// Stats is the snapshot the assistant answers from.
type Stats struct {
	Wards        int
	Beds         int
	BedsByStatus map[string]int
	Users        int
	ErrorLogs    int
	BusiestWard  string
	BusiestFree  int
}

// Stats counts what the database holds.
func (d *DB) Stats() (Stats, error) {
	s := Stats{BedsByStatus: map[string]int{}}
	for _, c := range []struct {
		q   string
		dst *int
	}{
		{"SELECT COUNT(*) FROM wards", &s.Wards},
		{"SELECT COUNT(*) FROM beds", &s.Beds},
		{"SELECT COUNT(*) FROM users WHERE active = 1", &s.Users},
		{"SELECT COUNT(*) FROM system_logs WHERE level = 'error'", &s.ErrorLogs},
	} {
		if err := d.db.QueryRow(c.q).Scan(c.dst); err != nil {
			return Stats{}, err
		}
	}

	rows, err := d.db.Query("SELECT status, COUNT(*) FROM beds GROUP BY status")
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, err
		}
		s.BedsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	err = d.db.QueryRow(`
		SELECT w.name, w.capacity - (SELECT COUNT(*) FROM beds b WHERE b.ward_id = w.id AND b.status = 'occupied') AS free
		FROM wards w ORDER BY free ASC, w.id LIMIT 1`).Scan(&s.BusiestWard, &s.BusiestFree)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, err
	}
	return s, nil
}
