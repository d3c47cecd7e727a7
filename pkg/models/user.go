package models

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash,omitempty"`
	IsAdmin      bool   `json:"is_admin"`
	LastLoginTS  int64  `json:"last_login_ts,omitempty"`
	CreatedTS    int64  `json:"created_ts"`
}

// Identity is the claim set carried by a verified bearer token. It is
// read-only to handlers and gates admin-only operations.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}
