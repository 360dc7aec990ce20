package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memberbeat/admin/internal/domain"
)

var _ TokenStore = (*TokenRepository)(nil)

// TokenRepository handles database operations for tokens.
type TokenRepository struct {
	db *pgxpool.Pool
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{db: db}
}

const tokenColumns = `id, network, contract_address, price_feed_address, token_name, symbol, icon_url, created_at, updated_at`

func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(&t.ID, &t.Network, &t.ContractAddress, &t.PriceFeedAddress,
		&t.TokenName, &t.Symbol, &t.IconURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Token, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// List returns all tokens in creation order.
func (r *TokenRepository) List(ctx context.Context) ([]*domain.Token, error) {
	return r.query(ctx, `SELECT `+tokenColumns+` FROM tokens ORDER BY created_at ASC, id ASC`)
}

// FindByIDs returns the tokens whose ids are listed. Unknown ids are skipped.
func (r *TokenRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Token, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = ANY($1)`, ids)
}

// FindByID returns a token by ID.
func (r *TokenRepository) FindByID(ctx context.Context, id string) (*domain.Token, error) {
	t, err := scanToken(r.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return t, nil
}

// Create inserts a new token.
func (r *TokenRepository) Create(ctx context.Context, t *domain.Token) error {
	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.Network, t.ContractAddress, t.PriceFeedAddress,
		t.TokenName, t.Symbol, t.IconURL, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// Update overwrites every editable field of a token.
func (r *TokenRepository) Update(ctx context.Context, t *domain.Token) error {
	query := `
		UPDATE tokens
		SET network = $1, contract_address = $2, price_feed_address = $3,
		    token_name = $4, symbol = $5, icon_url = $6, updated_at = $7
		WHERE id = $8
	`
	_, err := r.db.Exec(ctx, query,
		t.Network, t.ContractAddress, t.PriceFeedAddress,
		t.TokenName, t.Symbol, t.IconURL, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return nil
}

// Delete removes a token by ID.
func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
