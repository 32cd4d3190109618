package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/fintrack/backend/internal/models"
)

// UserRepository persists user accounts. Password hashes are handled
// separately from the User model so they never leak into responses.
type UserRepository interface {
	Create(ctx context.Context, user models.User, passwordHash string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, string, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
}

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user models.User, passwordHash string) (models.User, error) {
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `, user.Username, strings.ToLower(user.Email), passwordHash).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "email") {
				return models.User{}, ErrEmailTaken
			}
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, string, error) {
	var user models.User
	var hash string
	err := r.db.QueryRowContext(ctx, `
        SELECT id, username, email, password_hash, created_at
        FROM users
        WHERE username = $1
    `, username).Scan(&user.ID, &user.Username, &user.Email, &hash, &user.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, "", ErrUserNotFound
		}
		return models.User{}, "", fmt.Errorf("find user by username: %w", err)
	}

	return user, hash, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, `
        SELECT id, username, email, created_at
        FROM users
        WHERE id = $1
    `, id).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("find user by id: %w", err)
	}

	return user, nil
}
