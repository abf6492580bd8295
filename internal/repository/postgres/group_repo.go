package postgres

import (
	"context"
	"database/sql"
	"errors"

	"committeesync/internal/domain"
)

type groupRepository struct {
	DB *sql.DB
}

// NewGroupRepository reads committee/working-group display data. Group CRUD
// lives elsewhere; the sync core only consumes name and symbol.
func NewGroupRepository(db *sql.DB) domain.GroupProvider {
	return &groupRepository{
		DB: db,
	}
}

func (r *groupRepository) Get(ctx context.Context, id string) (*domain.Group, error) {
	query := `
		SELECT id, name, symbol
		FROM groups
		WHERE id = $1
	`
	g := &domain.Group{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}
