package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"deskchat/pkg/logger"
	"deskchat/pkg/models"
	"deskchat/pkg/store"
	"deskchat/pkg/utils"
)

// GetSystemPrompt returns the stored system prompt. Before any admin has
// set one, the configured default is reported.
func GetSystemPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := store.GetSystemPrompt()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fallback := ""
			if ChatRouter != nil {
				fallback = ChatRouter.SystemPrompt
			}
			utils.JSONWrite(w, http.StatusOK, map[string]any{"prompt": fallback, "stored": false})
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to load system prompt")
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"prompt": prompt, "stored": true})
}

// PutSystemPrompt stores a new system prompt. It takes effect on the
// next completion call.
func PutSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		utils.JSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if err := store.SetSystemPrompt(req.Prompt); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to store system prompt")
		return
	}
	logger.Info("system_prompt_updated", "len", len(req.Prompt))
	utils.JSONWrite(w, http.StatusOK, map[string]any{"prompt": req.Prompt, "stored": true})
}

// Stats reports basic usage counters for the admin dashboard.
func Stats(w http.ResponseWriter, r *http.Request) {
	users, err := store.CountUsers()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to count users")
		return
	}
	convs, err := store.ListConversations()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	faqs, err := store.ListFAQs()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to load faqs")
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{
		"users":         users,
		"conversations": len(convs),
		"faqs":          len(faqs),
	})
}

// Health reports component status for the admin dashboard.
func Health(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"store": store.Ready(),
		"llm":   ChatRouter != nil && ChatRouter.Completer != nil,
	}
	if run, err := store.GetRetentionLastRun(); err == nil {
		out["retention_last_run"] = run
	}
	utils.JSONWrite(w, http.StatusOK, out)
}

// ListConversations returns metadata for every conversation.
func ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := store.ListConversations()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"conversations": convs, "total": len(convs)})
}

// DeleteConversationHandler removes a user's conversation and messages.
func DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if err := store.DeleteConversation(userID); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	logger.Info("conversation_deleted", "user", userID)
	w.WriteHeader(http.StatusNoContent)
}
