package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagen/watchvault/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

const mediaColumns = `id::text, title, media_type, watched, date_watched, date_watched_seasons,
	rating, ratings, tags, thumbnail, year, imdb_id, version, created_at`

func scanMedia(row pgx.Row) (*models.Media, error) {
	var (
		m         models.Media
		mediaType string
		tags      []string
	)
	err := row.Scan(
		&m.ID,
		&m.Title,
		&mediaType,
		&m.Watched,
		&m.DateWatched,
		&m.DateWatchedSeasons,
		&m.Rating,
		&m.Ratings,
		&tags,
		&m.Thumbnail,
		&m.Year,
		&m.ImdbID,
		&m.Version,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.MediaType = models.MediaType(mediaType)
	m.Tags = make([]models.Tag, len(tags))
	for i, t := range tags {
		m.Tags[i] = models.Tag(t)
	}
	if m.DateWatchedSeasons == nil {
		m.DateWatchedSeasons = []string{}
	}
	return &m, nil
}

func tagStrings(tags []models.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// parseID turns an opaque id into a UUID. Ids that can't be UUIDs can't exist.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.UUID{}, ErrNotFound
	}
	return u, nil
}

// ListMedia returns entries matching the filter.
func (p *Postgres) ListMedia(ctx context.Context, filter MediaFilter) ([]models.Media, error) {
	var (
		where []string
		args  []any
	)
	if filter.Watched != nil {
		args = append(args, *filter.Watched)
		where = append(where, fmt.Sprintf("watched = $%d", len(args)))
	}
	if filter.MediaType != nil {
		args = append(args, string(*filter.MediaType))
		where = append(where, fmt.Sprintf("media_type = $%d", len(args)))
	}
	if filter.Title != "" {
		args = append(args, "%"+strings.ToLower(filter.Title)+"%")
		where = append(where, fmt.Sprintf("lower(title) LIKE $%d", len(args)))
	}

	query := `SELECT ` + mediaColumns + ` FROM media`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	dir := filter.sortDirection()
	query += fmt.Sprintf(` ORDER BY %s %s, created_at %s, id ASC`, filter.sortColumn(), dir, dir)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListMedia: %w", err)
	}
	defer rows.Close()

	items := []models.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("ListMedia scan: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMedia rows: %w", err)
	}
	return items, nil
}

// GetMedia returns a single entry by id.
func (p *Postgres) GetMedia(ctx context.Context, id string) (*models.Media, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m, err := scanMedia(p.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetMedia: %w", err)
	}
	return m, nil
}

// InsertMedia creates an entry with a fresh UUID.
func (p *Postgres) InsertMedia(ctx context.Context, in models.MediaCreate) (*models.Media, error) {
	m, err := scanMedia(p.pool.QueryRow(ctx,
		`INSERT INTO media (id, title, media_type, watched, date_watched, date_watched_seasons,
		   rating, ratings, tags, thumbnail, year, imdb_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+mediaColumns,
		uuid.New(), in.Title, string(in.MediaType), in.Watched, in.DateWatched, nonNil(in.DateWatchedSeasons),
		in.Rating, in.Ratings, tagStrings(in.Tags), in.Thumbnail, in.Year, in.ImdbID,
	))
	if err != nil {
		return nil, fmt.Errorf("InsertMedia: %w", err)
	}
	return m, nil
}

// UpdateMedia applies the set fields and bumps the version. The row must still
// carry the version that was read, or the caller-supplied one when given.
func (p *Postgres) UpdateMedia(ctx context.Context, id string, fields models.MediaUpdate) (*models.Media, error) {
	current, err := p.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	if fields.Version != nil && *fields.Version != current.Version {
		return nil, ErrEditConflict
	}
	fields.Apply(current)

	m, err := scanMedia(p.pool.QueryRow(ctx,
		`UPDATE media SET date_watched = $1, date_watched_seasons = $2, tags = $3, rating = $4,
		   ratings = $5, version = version + 1
		 WHERE id = $6 AND version = $7
		 RETURNING `+mediaColumns,
		current.DateWatched, nonNil(current.DateWatchedSeasons), tagStrings(current.Tags), current.Rating,
		current.Ratings, uuid.MustParse(current.ID), current.Version,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEditConflict
		}
		return nil, fmt.Errorf("UpdateMedia: %w", err)
	}
	return m, nil
}

// DeleteMedia removes an entry.
func (p *Postgres) DeleteMedia(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("DeleteMedia: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkWatched flips a to-watch entry to watched and records the date and
// rating inside one transaction, so the entry is never in both lists or in
// neither.
func (p *Postgres) MarkWatched(ctx context.Context, id string, in models.WatchedInput) (*models.Media, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("MarkWatched begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanMedia(tx.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1 FOR UPDATE`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("MarkWatched select: %w", err)
	}
	if current.Watched {
		return nil, ErrAlreadyWatched
	}

	m, err := scanMedia(tx.QueryRow(ctx,
		`UPDATE media SET watched = true, date_watched = $1, date_watched_seasons = $2, rating = $3,
		   version = version + 1
		 WHERE id = $4
		 RETURNING `+mediaColumns,
		in.DateWatched, nonNil(in.DateWatchedSeasons), in.Rating, uid,
	))
	if err != nil {
		return nil, fmt.Errorf("MarkWatched update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("MarkWatched commit: %w", err)
	}
	return m, nil
}
