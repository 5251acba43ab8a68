// Package pgstore reads posts from PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lemmi/glubblog/backend"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sqlx.DB
}

func Open(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot connect to database")
	}
	return &Store{db: db}, nil
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate brings the schema up to date.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "Cannot open migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return errors.Wrap(err, "Cannot create migrate instance")
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			return nil
		}
		return errors.Wrap(err, "Cannot apply migrations")
	}
	log.Println("migrations applied")
	return nil
}

func (s *Store) Slugs(ctx context.Context) ([]string, error) {
	var slugs []string
	err := s.db.SelectContext(ctx, &slugs, `SELECT slug FROM posts WHERE slug <> '' ORDER BY created_at DESC, slug`)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot list slugs")
	}
	return slugs, nil
}

type postRow struct {
	Title       string         `db:"title"`
	Summary     string         `db:"summary"`
	Image       []byte         `db:"image"`
	Content     []byte         `db:"content"`
	AuthorName  sql.NullString `db:"author_name"`
	AuthorBio   sql.NullString `db:"author_bio"`
	AuthorImage []byte         `db:"author_image"`
}

const postQuery = `
SELECT p.title, p.summary, p.image, p.content,
       a.name AS author_name, a.bio AS author_bio, a.image AS author_image
FROM posts p
LEFT JOIN authors a ON a.id = p.author_id
WHERE p.slug = $1`

func (s *Store) PostBySlug(ctx context.Context, slug string) (*backend.Post, error) {
	var row postRow
	err := s.db.GetContext(ctx, &row, postQuery, slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot get post %q", slug)
	}
	return row.post()
}

func decodeJSON(b []byte, v interface{}) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, v)
}

func (r postRow) post() (*backend.Post, error) {
	p := &backend.Post{
		Title:   r.Title,
		Summary: r.Summary,
	}
	if err := decodeJSON(r.Image, &p.Image); err != nil {
		return nil, errors.Wrap(err, "Cannot decode post image")
	}
	if err := decodeJSON(r.Content, &p.Content); err != nil {
		return nil, errors.Wrap(err, "Cannot decode post content")
	}
	if r.AuthorName.Valid {
		p.Author = &backend.Author{
			Name: r.AuthorName.String,
			Bio:  r.AuthorBio.String,
		}
		if err := decodeJSON(r.AuthorImage, &p.Author.Image); err != nil {
			return nil, errors.Wrap(err, "Cannot decode author image")
		}
	}
	return p, nil
}
