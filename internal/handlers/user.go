// internal/handlers/user.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/duelpit/duelpit/internal/auth"
	"github.com/duelpit/duelpit/internal/database"
	"github.com/duelpit/duelpit/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// EnsureEphemeralUser resolves the caller from the auth_token cookie,
// minting a guest account (and setting the cookie) when there is none or the
// token is invalid. Guests can sit down or spectate without registering.
func EnsureEphemeralUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	cookieHeader := r.Header.Get("Cookie")
	if !strings.Contains(cookieHeader, "auth_token=") {
		return mintGuest(w)
	}

	userID, err := auth.AuthenticateJWT(extractTokenFromCookie(cookieHeader))
	if err != nil {
		return mintGuest(w)
	}

	uuidVal, parseErr := uuid.Parse(userID)
	if parseErr != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in token: %w", parseErr)
	}
	return uuidVal, nil
}

func mintGuest(w http.ResponseWriter) (uuid.UUID, error) {
	guest := models.User{
		Username:    "Guest",
		IsEphemeral: true,
	}
	if err := database.CreateUser(context.Background(), &guest); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ephemeral user: %w", err)
	}
	token, err := auth.CreateJWT(guest.ID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ephemeral JWT: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return guest.ID, nil
}

// CreateUserHandler registers a permanent account.
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:       req.Email,
		Password:    req.Password,
		Username:    req.Username,
		IsEphemeral: false,
		IsAdmin:     false,
	}

	if err := database.CreateUser(r.Context(), &user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}
	user.Password = ""
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler authenticates email/password and returns a session JWT, also
// set as the auth_token cookie.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Printf("failed to authenticate user: %v", err)
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TOKEN_EXPIRE_TIME_SEC,
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{Token: token}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
		return
	}
}
