package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"deskchat/pkg/auth"
	"deskchat/pkg/bot"
	"deskchat/pkg/models"
	"deskchat/pkg/store"
	"deskchat/pkg/utils"
	"deskchat/pkg/validation"
)

// ChatRouter produces bot replies. Installed once during app wiring.
var ChatRouter *bot.Router

// SetChatRouter installs the reply router used by SendMessage.
func SetChatRouter(r *bot.Router) { ChatRouter = r }

// messageView is a Message plus render-friendly timestamp fields.
type messageView struct {
	models.Message
	Timestamp     string `json:"timestamp"`
	FormattedTime string `json:"formatted_time"`
}

func viewOfMessage(m models.Message) messageView {
	return messageView{
		Message:       m,
		Timestamp:     time.Unix(0, m.TS).UTC().Format(time.RFC3339Nano),
		FormattedTime: utils.FormatTime(m.TS),
	}
}

var reactionTypes = map[string]bool{
	"like":        true,
	"dislike":     true,
	"helpful":     true,
	"not_helpful": true,
}

// SendMessage appends the caller's message and returns it together with
// the bot reply.
func SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.ValidateMessageText(req.Content); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ChatRouter == nil {
		utils.JSONError(w, http.StatusServiceUnavailable, "chat router not ready")
		return
	}
	userMsg, botMsg, err := ChatRouter.Respond(r.Context(), id.UserID, req.Content)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to store message")
		return
	}
	utils.JSONWrite(w, http.StatusCreated, map[string]any{
		"message": viewOfMessage(userMsg),
		"reply":   viewOfMessage(botMsg),
	})
}

// History returns the caller's messages in chronological order with
// optional substring search and offset/limit pagination.
func History(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	msgs, err := store.ListMessages(id.UserID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); q != "" {
		filtered := msgs[:0]
		for _, m := range msgs {
			if strings.Contains(strings.ToLower(m.Content), q) {
				filtered = append(filtered, m)
			}
		}
		msgs = filtered
	}
	total := len(msgs)
	offset := intQuery(r, "offset", 0)
	limit := intQuery(r, "limit", 50)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	page := msgs[offset:end]
	if page == nil {
		page = []models.Message{}
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{
		"messages": page,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Export streams the caller's history as txt, json or csv.
func Export(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	msgs, err := store.ListMessages(id.UserID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "txt"
	}
	filename := "chat-history." + format

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		_ = json.NewEncoder(w).Encode(msgs)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"timestamp", "sender", "content"})
		for _, m := range msgs {
			_ = cw.Write([]string{utils.FormatTime(m.TS), m.Sender, m.Content})
		}
		cw.Flush()
	case "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		fmt.Fprintf(w, "Chat history for %s\n\n", id.Username)
		for _, m := range msgs {
			sender := "You"
			if m.Sender == models.SenderBot {
				sender = "Support Bot"
			}
			fmt.Fprintf(w, "[%s] %s: %s\n", utils.FormatTime(m.TS), sender, m.Content)
		}
	default:
		utils.JSONError(w, http.StatusBadRequest, "format must be txt, json or csv")
	}
}

// React toggles the caller's reaction on one of their messages.
func React(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	msgID := mux.Vars(r)["id"]
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !reactionTypes[req.Type] {
		utils.JSONError(w, http.StatusBadRequest, "unknown reaction type")
		return
	}
	m, err := store.ToggleReaction(id.UserID, msgID, id.UserID, req.Type)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "message not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to update reaction")
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}

// ClearHistory deletes the caller's conversation.
func ClearHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if err := store.DeleteConversation(id.UserID); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// typing state is ephemeral and in-memory only.
var (
	typingMu  sync.Mutex
	typingMap = map[string]time.Time{}
)

const typingTTL = 5 * time.Second

// SetTyping records that the caller is composing a message.
func SetTyping(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	var req struct {
		Typing bool `json:"typing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	typingMu.Lock()
	if req.Typing {
		typingMap[id.UserID] = time.Now().Add(typingTTL)
	} else {
		delete(typingMap, id.UserID)
	}
	typingMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// GetTyping reports whether the caller's typing flag is still live.
func GetTyping(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	typingMu.Lock()
	deadline, present := typingMap[id.UserID]
	if present && time.Now().After(deadline) {
		delete(typingMap, id.UserID)
		present = false
	}
	typingMu.Unlock()
	utils.JSONWrite(w, http.StatusOK, map[string]bool{"typing": present})
}
