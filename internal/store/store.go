package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound marks writes that matched no row.
var ErrNotFound = errors.New("not found")

// Store wraps the shared Postgres handle. Every component receives it
// explicitly; there is no package-level singleton.
type Store struct {
	DB *sql.DB
}

// Kind identifies one of the four searchable document kinds.
type Kind string

const (
	KindPaper   Kind = "paper"
	KindMemo    Kind = "memo"
	KindChapter Kind = "chapter"
	KindFigure  Kind = "figure"
)

// Kinds lists all document kinds in canonical order.
func Kinds() []Kind {
	return []Kind{KindPaper, KindMemo, KindChapter, KindFigure}
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

// NewWithDSN opens a Postgres connection and verifies it is reachable.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// Paper is a stored paper with the fields the search and HTTP layers project.
type Paper struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Authors   string    `json:"authors"`
	Year      int       `json:"year"`
	Content   string    `json:"content,omitempty"`
	FilePath  string    `json:"file_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Memo is a per-page annotation attached to a paper.
type Memo struct {
	ID         string    `json:"id"`
	PaperID    string    `json:"paper_id"`
	PaperTitle string    `json:"paper_title,omitempty"`
	Content    string    `json:"content"`
	PageNumber int       `json:"page_number,omitempty"`
	PageRange  string    `json:"page_range,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MemoText is the minimal projection the relation builder scans.
type MemoText struct {
	ID      string
	Content string
}

// Chapter is an extracted chapter of a paper.
type Chapter struct {
	ID            string    `json:"id"`
	PaperID       string    `json:"paper_id"`
	PaperTitle    string    `json:"paper_title,omitempty"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title"`
	Content       string    `json:"content,omitempty"`
	PageStart     int       `json:"page_start,omitempty"`
	PageEnd       int       `json:"page_end,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Figure is an extracted figure or table of a paper.
type Figure struct {
	ID           string    `json:"id"`
	PaperID      string    `json:"paper_id"`
	PaperTitle   string    `json:"paper_title,omitempty"`
	FigureNumber int       `json:"figure_number"`
	Caption      string    `json:"caption"`
	PageNumber   int       `json:"page_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}
