package database

import (
	"context"
	"fmt"

	"github.com/duelpit/duelpit/internal/auth"
	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash

	q := `INSERT INTO users (id, email, password, username, is_ephemeral, is_admin)
	      VALUES ($1, $2, $3, $4, $5, $6)`

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Email, user.Password, user.Username,
			user.IsEphemeral, user.IsAdmin,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	q := `
	SELECT id, email, password, username, is_ephemeral, is_admin
	FROM users
	WHERE email=$1
	`
	err := DB.QueryRow(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.IsEphemeral, &u.IsAdmin,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	q := `
	SELECT id, email, password, username, is_ephemeral, is_admin
	FROM users
	WHERE id=$1
	`
	err := DB.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.IsEphemeral, &u.IsAdmin,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AuthenticateUser checks credentials and returns a fresh session JWT.
func AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	user, err := GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("user not found or db error: %w", err)
	}

	match, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.CreateJWT(user.ID.String())
	if err != nil {
		return "", fmt.Errorf("failed to create jwt: %w", err)
	}

	return token, nil
}
