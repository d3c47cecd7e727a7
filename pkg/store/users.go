package store

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/cockroachdb/pebble"

	"deskchat/pkg/models"
)

// ErrUsernameTaken is returned by CreateUser when the username index
// already holds an entry.
var ErrUsernameTaken = errors.New("username already taken")

func userKey(id string) []byte { return []byte("user:" + id) }

func usernameKey(name string) []byte {
	return []byte("username:" + strings.ToLower(name))
}

// CreateUser stores a new user and its username index entry. Usernames
// are unique case-insensitively.
func CreateUser(u models.User) error {
	if db == nil {
		return errors.New("store not open")
	}
	_, closer, err := db.Get(usernameKey(u.Username))
	if err == nil {
		closer.Close()
		return opResult("create_user", ErrUsernameTaken)
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return opResult("create_user", err)
	}
	b, err := json.Marshal(u)
	if err != nil {
		return opResult("create_user", err)
	}
	batch := db.NewBatch()
	defer batch.Close()
	if err := batch.Set(userKey(u.ID), b, nil); err != nil {
		return opResult("create_user", err)
	}
	if err := batch.Set(usernameKey(u.Username), []byte(u.ID), nil); err != nil {
		return opResult("create_user", err)
	}
	return opResult("create_user", batch.Commit(pebble.Sync))
}

// GetUser returns a user by id.
func GetUser(id string) (models.User, error) {
	var u models.User
	if db == nil {
		return u, errors.New("store not open")
	}
	v, closer, err := db.Get(userKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return u, opResult("get_user", ErrNotFound)
		}
		return u, opResult("get_user", err)
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &u); err != nil {
		return u, opResult("get_user", err)
	}
	return u, opResult("get_user", nil)
}

// GetUserByUsername resolves the username index and returns the user.
func GetUserByUsername(name string) (models.User, error) {
	var u models.User
	if db == nil {
		return u, errors.New("store not open")
	}
	v, closer, err := db.Get(usernameKey(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return u, opResult("get_user_by_name", ErrNotFound)
		}
		return u, opResult("get_user_by_name", err)
	}
	id := string(v)
	closer.Close()
	return GetUser(id)
}

// UpdateUser rewrites an existing user record. The username is treated
// as immutable; callers must not change it.
func UpdateUser(u models.User) error {
	if db == nil {
		return errors.New("store not open")
	}
	b, err := json.Marshal(u)
	if err != nil {
		return opResult("update_user", err)
	}
	return opResult("update_user", db.Set(userKey(u.ID), b, pebble.Sync))
}

// CountUsers returns the number of registered users.
func CountUsers() (int, error) {
	if db == nil {
		return 0, errors.New("store not open")
	}
	prefix := []byte("user:")
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, opResult("count_users", err)
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, opResult("count_users", iter.Error())
}
