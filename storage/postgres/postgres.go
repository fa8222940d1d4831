// Package postgres provides the remote catalog on PostgreSQL: a
// storage.BookSource over the books and categories tables and a
// storage.FullTextSearcher over the search_books and get_search_suggestions
// SQL functions. It uses pgx/v5 for connection pooling.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/storage"
	"github.com/poiesic/bookshelf/textproc"
)

const bookColumns = `id, title, author, category, description, keywords, tags,
	rating, available, year, extra`

// Source is a PostgreSQL-backed catalog.
type Source struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ storage.BookSource       = (*Source)(nil)
	_ storage.FullTextSearcher = (*Source)(nil)
)

// Option configures a Source.
type Option func(*Source) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New connects to PostgreSQL. If MigrateOnStart is true, schema migrations
// are applied before returning.
func New(ctx context.Context, cfg Config, opts ...Option) (*Source, error) {
	cfg.defaults()

	s := &Source{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	s.pool = pool

	if cfg.MigrateOnStart {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// FetchBooks returns the books matching filters in insertion order.
func (s *Source) FetchBooks(ctx context.Context, filters core.Filters) ([]core.Book, error) {
	if err := core.ValidateFilters(filters); err != nil {
		return nil, err
	}

	query, args := booksQuery(filters)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	return collectBooks(rows)
}

// booksQuery builds the filtered catalog query.
func booksQuery(filters core.Filters) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filters.Category != "" {
		add("lower(category) = lower($%d)", filters.Category)
	}
	if filters.Author != "" {
		add("lower(author) = lower($%d)", filters.Author)
	}
	switch filters.Availability {
	case core.AvailabilityAvailable:
		add("available = $%d", true)
	case core.AvailabilityUnavailable:
		add("available = $%d", false)
	}
	if filters.MinRating > 0 {
		add("rating >= $%d", filters.MinRating)
	}

	query := "SELECT " + bookColumns + " FROM books"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	return query, args
}

// FetchBook returns one book or storage.ErrNotFound.
func (s *Source) FetchBook(ctx context.Context, id string) (core.Book, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1", id)

	book, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Book{}, fmt.Errorf("book %q: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.Book{}, fmt.Errorf("querying book: %w", err)
	}
	return book, nil
}

// FetchCategories returns the category table ordered by name.
func (s *Source) FetchCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, description FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}

	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		var c core.Category
		err := row.Scan(&c.ID, &c.Name, &c.Description)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning categories: %w", err)
	}
	return categories, nil
}

// SearchBooks calls the search_books SQL function.
func (s *Source) SearchBooks(ctx context.Context, query string, limit int) ([]core.Book, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+bookColumns+" FROM search_books($1, $2)", query, limit)
	if err != nil {
		return nil, fmt.Errorf("calling search_books: %w", err)
	}
	return collectBooks(rows)
}

// SearchSuggestions calls the get_search_suggestions SQL function.
func (s *Source) SearchSuggestions(ctx context.Context, partial string, limit int) ([]core.Suggestion, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT suggestion, type, count FROM get_search_suggestions($1, $2)", partial, limit)
	if err != nil {
		return nil, fmt.Errorf("calling get_search_suggestions: %w", err)
	}

	suggestions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Suggestion, error) {
		var sg core.Suggestion
		err := row.Scan(&sg.Text, &sg.Type, &sg.Count)
		return sg, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning suggestions: %w", err)
	}
	return suggestions, nil
}

// UpsertBook inserts or replaces a book.
func (s *Source) UpsertBook(ctx context.Context, book core.Book) error {
	if err := core.ValidateBook(&book); err != nil {
		return err
	}

	var extra []byte
	if len(book.Extra) > 0 {
		var err error
		if extra, err = json.Marshal(book.Extra); err != nil {
			return fmt.Errorf("marshaling extra: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO books (
			id, title, author, category, description, keywords, tags,
			rating, available, year, extra
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			keywords = EXCLUDED.keywords,
			tags = EXCLUDED.tags,
			rating = EXCLUDED.rating,
			available = EXCLUDED.available,
			year = EXCLUDED.year,
			extra = EXCLUDED.extra,
			updated_at = now()
	`,
		book.ID, book.Title, book.Author, book.Category, book.Description,
		nonNil(book.Keywords), nonNil(book.Tags),
		book.Rating, book.Available, book.Year, extra,
	)
	if err != nil {
		return fmt.Errorf("upserting book: %w", err)
	}
	return nil
}

// UpsertCategory inserts or replaces a category.
func (s *Source) UpsertCategory(ctx context.Context, c core.Category) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, name, description) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description
	`, c.ID, c.Name, c.Description)
	if err != nil {
		return fmt.Errorf("upserting category: %w", err)
	}
	return nil
}

// DeleteBook removes a book, returning storage.ErrNotFound if it is absent.
func (s *Source) DeleteBook(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// HealthCheck verifies database connectivity.
func (s *Source) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Source) Close() error {
	s.pool.Close()
	return nil
}

func collectBooks(rows pgx.Rows) ([]core.Book, error) {
	books, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Book, error) {
		return scanBook(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning books: %w", err)
	}
	return books, nil
}

func scanBook(row pgx.Row) (core.Book, error) {
	var (
		b     core.Book
		extra []byte
	)
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Category, &b.Description,
		&b.Keywords, &b.Tags, &b.Rating, &b.Available, &b.Year, &extra,
	)
	if err != nil {
		return core.Book{}, err
	}

	b.Description = textproc.StripHTML(b.Description)
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &b.Extra); err != nil {
			return core.Book{}, fmt.Errorf("unmarshaling extra: %w", err)
		}
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
