package sqlitestore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-truckdocs/documents"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	owner_email   TEXT NOT NULL,
	truck_number  TEXT NOT NULL,
	loaded_date   TEXT NOT NULL,
	at20_depot    TEXT NOT NULL,
	product       TEXT NOT NULL,
	destination   TEXT NOT NULL,
	gate_pass_url TEXT NOT NULL,
	gate_pass_name TEXT NOT NULL,
	tr812_url     TEXT NOT NULL,
	tr812_name    TEXT NOT NULL,
	epermit_url   TEXT,
	epermit_name  TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);
`

const columns = `id, owner_id, owner_email, truck_number, loaded_date, at20_depot, product, destination,
	gate_pass_url, gate_pass_name, tr812_url, tr812_name, epermit_url, epermit_name, created_at`

// Store keeps document records in a single SQLite file.
type Store struct {
	db *sql.DB
}

var _ documents.Repo = (*Store)(nil)

// Open creates the database file and schema when missing. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "[sqlitestore.Open] create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Open] sql.Open")
	}

	// One connection serialises writers and keeps ":memory:" a single database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "[sqlitestore.Open] %s", pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "[sqlitestore.Open] schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Append(ctx context.Context, rec *documents.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.OwnerEmail, rec.TruckNumber, rec.LoadedDate, rec.AT20Depot,
		rec.Product, rec.Destination, rec.GatePassURL, rec.GatePassName, rec.TR812URL, rec.TR812Name,
		nullString(rec.EPermitURL), nullString(rec.EPermitName), rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(err, "[Store.Append] insert")
	}
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]documents.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM documents WHERE owner_id = ? ORDER BY rowid`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.ListByOwner] query")
	}
	defer rows.Close()

	var out []documents.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[Store.ListByOwner] scan")
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[Store.ListByOwner] rows")
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, ownerID, id string) (*documents.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM documents WHERE id = ? AND owner_id = ?`, id, ownerID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, documents.ErrDocumentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Get] scan")
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*documents.Record, error) {
	var (
		rec         documents.Record
		ePermitURL  sql.NullString
		ePermitName sql.NullString
		createdAt   string
	)
	err := sc.Scan(&rec.ID, &rec.OwnerID, &rec.OwnerEmail, &rec.TruckNumber, &rec.LoadedDate, &rec.AT20Depot,
		&rec.Product, &rec.Destination, &rec.GatePassURL, &rec.GatePassName, &rec.TR812URL, &rec.TR812Name,
		&ePermitURL, &ePermitName, &createdAt)
	if err != nil {
		return nil, err
	}
	if ePermitURL.Valid {
		rec.EPermitURL = &ePermitURL.String
	}
	if ePermitName.Valid {
		rec.EPermitName = &ePermitName.String
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, errors.Wrapf(err, "created_at %q", createdAt)
	}
	return &rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
