// internal/adapter/storage/category_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"stagemap/internal/domain/event"
)

// DefaultCategories are created when the categories table is empty
var DefaultCategories = []string{
	"Music",
	"Technology",
	"Sports",
	"Art",
	"Food",
	"Business",
	"Health",
	"Education",
}

// CategoryStore implements storage for categories
type CategoryStore struct {
	db *pgxpool.Pool
}

// NewCategoryStore creates a new category store
func NewCategoryStore(db *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{
		db: db,
	}
}

// EnsureDefaults inserts DefaultCategories when no category exists yet and
// reports how many were created
func (s *CategoryStore) EnsureDefaults(ctx context.Context) (int, error) {
	var existing int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("error counting categories: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	created := 0
	for _, name := range DefaultCategories {
		tag, err := s.db.Exec(ctx,
			`INSERT INTO categories (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			uuid.New().String(), name,
		)
		if err != nil {
			return created, fmt.Errorf("error inserting category %q: %w", name, err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

// GetCategory retrieves a category by ID
func (s *CategoryStore) GetCategory(ctx context.Context, id string) (*event.Category, error) {
	if !validID(id) {
		return nil, event.ErrCategoryNotFound
	}

	var c event.Category
	err := s.db.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, translateError(err, event.ErrCategoryNotFound)
	}
	return &c, nil
}

// ListCategories returns every category ordered by name
func (s *CategoryStore) ListCategories(ctx context.Context) ([]event.Category, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}
	defer rows.Close()

	categories := []event.Category{}
	for rows.Next() {
		var c event.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
