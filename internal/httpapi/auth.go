package httpapi

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/loanwise/platform/internal/auth"
	"github.com/loanwise/platform/internal/domain/users"
)

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

func toUserResponse(u users.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin}
}

func registerAuthRoutes(mux *http.ServeMux, logger *slog.Logger, service users.Service, tokens *auth.Issuer) {
	mux.HandleFunc("/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Username        string `json:"username"`
			Email           string `json:"email"`
			Password        string `json:"password"`
			PasswordConfirm string `json:"password_confirm"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}

		user, err := service.Register(r.Context(), users.RegisterInput{
			Username:        payload.Username,
			Email:           payload.Email,
			Password:        payload.Password,
			PasswordConfirm: payload.PasswordConfirm,
		})
		if err != nil {
			switch {
			case errors.Is(err, users.ErrUsernameExists):
				respondError(w, http.StatusConflict, "username already in use")
			case errors.Is(err, users.ErrEmailExists):
				respondError(w, http.StatusConflict, "email already in use")
			case errors.Is(err, users.ErrInvalidInput):
				respondError(w, http.StatusBadRequest, err.Error())
			default:
				logger.Error("register user failed", "err", err)
				respondError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			logger.Error("issue token failed", "err", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("user_registered", "user_id", user.ID, "username", user.Username)
		respondJSON(w, http.StatusCreated, map[string]any{
			"user":  toUserResponse(user),
			"token": token,
		})
	})

	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}

		user, err := service.Authenticate(r.Context(), payload.Username, payload.Password)
		if err != nil {
			if errors.Is(err, users.ErrInvalidCredentials) {
				respondError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			logger.Error("authenticate failed", "err", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			logger.Error("issue token failed", "err", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"message": "login successful",
			"user":    toUserResponse(user),
			"token":   token,
		})
	})

	mux.Handle("/v1/auth/logout", tokens.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p, _ := auth.FromContext(r.Context())
		tokens.Revoke(p)
		w.WriteHeader(http.StatusNoContent)
	})))
}
