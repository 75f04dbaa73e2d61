package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uristernik/javaproject/internal/database"
	"github.com/uristernik/javaproject/internal/models"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, firstName, lastName, email, phone string, userType int) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (firstname, lastname, email, phone, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING userid, firstname, lastname, email, phone, type`

	err := s.db.QueryRowContext(ctx, query, firstName, lastName, email, phone, userType).Scan(
		&user.UserID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Phone,
		&user.Type,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *UserStore) Get(ctx context.Context, userID int64) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT userid, firstname, lastname, email, phone, type
		FROM users
		WHERE userid = $1`

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Phone,
		&user.Type,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT userid, firstname, lastname, email, phone, type
		FROM users
		ORDER BY userid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.UserID,
			&user.FirstName,
			&user.LastName,
			&user.Email,
			&user.Phone,
			&user.Type,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}
