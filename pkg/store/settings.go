package store

import (
	"encoding/json"
	"errors"

	"github.com/cockroachdb/pebble"
)

var (
	systemPromptKey     = []byte("config:system_prompt")
	retentionLastRunKey = []byte("state:retention:last_run")
)

// GetSystemPrompt returns the stored system prompt, or ErrNotFound when
// none has been set yet.
func GetSystemPrompt() (string, error) {
	if db == nil {
		return "", errors.New("store not open")
	}
	v, closer, err := db.Get(systemPromptKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", opResult("get_system_prompt", ErrNotFound)
		}
		return "", opResult("get_system_prompt", err)
	}
	out := string(v)
	closer.Close()
	return out, opResult("get_system_prompt", nil)
}

// SetSystemPrompt stores the system prompt used for completion calls.
func SetSystemPrompt(prompt string) error {
	if db == nil {
		return errors.New("store not open")
	}
	return opResult("set_system_prompt", db.Set(systemPromptKey, []byte(prompt), pebble.Sync))
}

// RetentionRun records the outcome of one retention sweep.
type RetentionRun struct {
	TS       int64 `json:"ts"`
	Examined int   `json:"examined"`
	Purged   int   `json:"purged"`
	DryRun   bool  `json:"dry_run"`
}

// SetRetentionLastRun persists the most recent sweep result.
func SetRetentionLastRun(run RetentionRun) error {
	if db == nil {
		return errors.New("store not open")
	}
	b, err := json.Marshal(run)
	if err != nil {
		return opResult("set_retention_run", err)
	}
	return opResult("set_retention_run", db.Set(retentionLastRunKey, b, pebble.Sync))
}

// GetRetentionLastRun returns the most recent sweep result, or ErrNotFound
// when no sweep has completed yet.
func GetRetentionLastRun() (RetentionRun, error) {
	var run RetentionRun
	if db == nil {
		return run, errors.New("store not open")
	}
	v, closer, err := db.Get(retentionLastRunKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return run, opResult("get_retention_run", ErrNotFound)
		}
		return run, opResult("get_retention_run", err)
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &run); err != nil {
		return run, opResult("get_retention_run", err)
	}
	return run, opResult("get_retention_run", nil)
}
