package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"deskchat/pkg/auth"
	"deskchat/pkg/logger"
	"deskchat/pkg/models"
	"deskchat/pkg/store"
	"deskchat/pkg/utils"
	"deskchat/pkg/validation"
)

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsAdmin     bool   `json:"isAdmin"`
	LastLoginTS int64  `json:"last_login_ts,omitempty"`
	CreatedTS   int64  `json:"created_ts"`
}

func viewOf(u models.User) userView {
	return userView{
		ID:          u.ID,
		Username:    u.Username,
		IsAdmin:     u.IsAdmin,
		LastLoginTS: u.LastLoginTS,
		CreatedTS:   u.CreatedTS,
	}
}

// Register creates a new (non-admin) user account.
func Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validation.ValidateUsername(req.Username); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	u := models.User{
		ID:           utils.GenUserID(),
		Username:     req.Username,
		PasswordHash: string(hash),
		CreatedTS:    time.Now().UnixNano(),
	}
	if err := store.CreateUser(u); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			utils.JSONError(w, http.StatusConflict, "username already taken")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	token, err := auth.MintToken(u)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	logger.Info("user_registered", "user", u.ID, "username", u.Username)
	utils.JSONWrite(w, http.StatusCreated, map[string]any{"token": token, "user": viewOf(u)})
}

// Login verifies credentials and issues a bearer token.
func Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := store.GetUserByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	u.LastLoginTS = time.Now().UnixNano()
	if err := store.UpdateUser(u); err != nil {
		logger.Warn("last_login_update_failed", "user", u.ID, "err", err)
	}
	token, err := auth.MintToken(u)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	logger.Info("user_login", "user", u.ID)
	utils.JSONWrite(w, http.StatusOK, map[string]any{"token": token, "user": viewOf(u)})
}

// Profile returns the authenticated user's record.
func Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	u, err := store.GetUser(id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "user not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	utils.JSONWrite(w, http.StatusOK, viewOf(u))
}
