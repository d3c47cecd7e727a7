package store

import (
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"deskchat/pkg/logger"
	"deskchat/pkg/metrics"
	"deskchat/pkg/models"
)

// Key layout:
//
//	conv:<userID>:meta                conversation metadata
//	conv:<userID>:msg:<ts>-<seq>      messages, ascending by timestamp
//	faq:<id>                          FAQ entries, ascending by creation
//	user:<id>                         user records
//	username:<name>                   username -> user id index
//	config:system_prompt              stored system prompt

var db *pebble.DB

var ready atomic.Bool

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Open opens (or creates) the database at path.
func Open(path string) error {
	d, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return err
	}
	db = d
	ready.Store(true)
	logger.Info("store_open", "path", path)
	return nil
}

// Close closes the database.
func Close() error {
	ready.Store(false)
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// Ready reports whether the store is open and accepting operations.
func Ready() bool { return ready.Load() }

func opResult(op string, err error) error {
	if err != nil {
		metrics.StoreOps.WithLabelValues(op, "error").Inc()
		return err
	}
	metrics.StoreOps.WithLabelValues(op, "ok").Inc()
	return nil
}

func convMetaKey(userID string) []byte {
	return []byte("conv:" + userID + ":meta")
}

func msgKey(userID, msgID string) []byte {
	// message ids are "msg-<ts>-<seq>"; the suffix sorts chronologically
	return []byte("conv:" + userID + ":msg:" + strings.TrimPrefix(msgID, "msg-"))
}

func msgPrefix(userID string) []byte {
	return []byte("conv:" + userID + ":msg:")
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// AppendMessage stores a message under the user's conversation and bumps
// the conversation metadata. The conversation is created lazily on the
// first message.
func AppendMessage(userID string, m models.Message) error {
	if db == nil {
		return opResult("append_message", errors.New("store not open"))
	}
	b, err := json.Marshal(m)
	if err != nil {
		return opResult("append_message", err)
	}
	if err := db.Set(msgKey(userID, m.ID), b, pebble.Sync); err != nil {
		return opResult("append_message", err)
	}

	conv, err := getConversation(userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return opResult("append_message", err)
	}
	if errors.Is(err, ErrNotFound) {
		conv = models.Conversation{UserID: userID, CreatedTS: m.TS}
	}
	conv.UpdatedTS = m.TS
	cb, err := json.Marshal(conv)
	if err != nil {
		return opResult("append_message", err)
	}
	return opResult("append_message", db.Set(convMetaKey(userID), cb, pebble.Sync))
}

// AppendExchange writes a user/bot message pair and the conversation
// metadata in a single batch, so a storage failure never leaves half of
// the exchange visible.
func AppendExchange(userID string, userMsg, botMsg models.Message) error {
	if db == nil {
		return opResult("append_exchange", errors.New("store not open"))
	}
	ub, err := json.Marshal(userMsg)
	if err != nil {
		return opResult("append_exchange", err)
	}
	bb, err := json.Marshal(botMsg)
	if err != nil {
		return opResult("append_exchange", err)
	}
	conv, err := getConversation(userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return opResult("append_exchange", err)
	}
	if errors.Is(err, ErrNotFound) {
		conv = models.Conversation{UserID: userID, CreatedTS: userMsg.TS}
	}
	conv.UpdatedTS = botMsg.TS
	cb, err := json.Marshal(conv)
	if err != nil {
		return opResult("append_exchange", err)
	}

	batch := db.NewBatch()
	defer batch.Close()
	if err := batch.Set(msgKey(userID, userMsg.ID), ub, nil); err != nil {
		return opResult("append_exchange", err)
	}
	if err := batch.Set(msgKey(userID, botMsg.ID), bb, nil); err != nil {
		return opResult("append_exchange", err)
	}
	if err := batch.Set(convMetaKey(userID), cb, nil); err != nil {
		return opResult("append_exchange", err)
	}
	return opResult("append_exchange", batch.Commit(pebble.Sync))
}

func getConversation(userID string) (models.Conversation, error) {
	var conv models.Conversation
	v, closer, err := db.Get(convMetaKey(userID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return conv, ErrNotFound
		}
		return conv, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &conv); err != nil {
		return conv, err
	}
	return conv, nil
}

// GetConversation returns a conversation's metadata.
func GetConversation(userID string) (models.Conversation, error) {
	if db == nil {
		return models.Conversation{}, errors.New("store not open")
	}
	conv, err := getConversation(userID)
	return conv, opResult("get_conversation", err)
}

// ListMessages returns every message in the user's conversation in
// chronological order.
func ListMessages(userID string) ([]models.Message, error) {
	if db == nil {
		return nil, errors.New("store not open")
	}
	prefix := msgPrefix(userID)
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, opResult("list_messages", err)
	}
	defer iter.Close()

	var out []models.Message
	for iter.First(); iter.Valid(); iter.Next() {
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("store_skip_bad_message", "user", userID, "err", err)
			continue
		}
		out = append(out, m)
	}
	return out, opResult("list_messages", iter.Error())
}

// ListRecentMessages returns up to n of the newest messages in
// chronological order.
func ListRecentMessages(userID string, n int) ([]models.Message, error) {
	if db == nil {
		return nil, errors.New("store not open")
	}
	if n <= 0 {
		return nil, nil
	}
	prefix := msgPrefix(userID)
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, opResult("list_recent", err)
	}
	defer iter.Close()

	out := make([]models.Message, 0, n)
	for iter.Last(); iter.Valid() && len(out) < n; iter.Prev() {
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, opResult("list_recent", err)
	}
	// reverse into chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, opResult("list_recent", nil)
}

// GetMessage returns a single message from the user's conversation.
func GetMessage(userID, msgID string) (models.Message, error) {
	var m models.Message
	if db == nil {
		return m, errors.New("store not open")
	}
	v, closer, err := db.Get(msgKey(userID, msgID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return m, opResult("get_message", ErrNotFound)
		}
		return m, opResult("get_message", err)
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &m); err != nil {
		return m, opResult("get_message", err)
	}
	return m, opResult("get_message", nil)
}

// ToggleReaction sets, changes or clears reactorID's reaction on a
// message. Reacting with the emoji already present removes it.
func ToggleReaction(userID, msgID, reactorID, emoji string) (models.Message, error) {
	m, err := GetMessage(userID, msgID)
	if err != nil {
		return m, err
	}
	if m.Reactions == nil {
		m.Reactions = map[string]string{}
	}
	if m.Reactions[reactorID] == emoji {
		delete(m.Reactions, reactorID)
	} else {
		m.Reactions[reactorID] = emoji
	}
	b, err := json.Marshal(m)
	if err != nil {
		return m, opResult("toggle_reaction", err)
	}
	return m, opResult("toggle_reaction", db.Set(msgKey(userID, m.ID), b, pebble.Sync))
}

// ListConversations returns metadata for every conversation.
func ListConversations() ([]models.Conversation, error) {
	if db == nil {
		return nil, errors.New("store not open")
	}
	prefix := []byte("conv:")
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, opResult("list_conversations", err)
	}
	defer iter.Close()

	var out []models.Conversation
	for iter.First(); iter.Valid(); iter.Next() {
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var c models.Conversation
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, opResult("list_conversations", iter.Error())
}

// DeleteConversation removes a conversation's messages and metadata.
func DeleteConversation(userID string) error {
	if db == nil {
		return errors.New("store not open")
	}
	prefix := msgPrefix(userID)
	batch := db.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange(prefix, keyUpperBound(prefix), nil); err != nil {
		return opResult("delete_conversation", err)
	}
	if err := batch.Delete(convMetaKey(userID), nil); err != nil {
		return opResult("delete_conversation", err)
	}
	return opResult("delete_conversation", batch.Commit(pebble.Sync))
}
