package bot

import (
	"context"
	"errors"
	"time"

	"deskchat/pkg/llm"
	"deskchat/pkg/logger"
	"deskchat/pkg/metrics"
	"deskchat/pkg/models"
	"deskchat/pkg/store"
	"deskchat/pkg/utils"
)

// Router turns an incoming user message into a stored user/bot message
// pair. FAQ matches answer directly; everything else goes to the
// completion backend, and any completion failure is absorbed into the
// configured apology reply so the user always gets an answer.
type Router struct {
	Completer     llm.Completer
	HistoryWindow int
	ReplyDelay    time.Duration
	Apology       string
	// SystemPrompt is the fallback when no prompt has been stored yet.
	SystemPrompt string
}

// Respond computes a reply for the user's message and persists both
// sides of the exchange in one batch, so a failed send leaves nothing
// behind. Storage errors are returned; completion errors are not.
func (rt *Router) Respond(ctx context.Context, userID, text string) (models.Message, models.Message, error) {
	now := time.Now().UnixNano()
	userMsg := models.Message{
		ID:      utils.GenMessageID(now),
		Sender:  models.SenderUser,
		Content: text,
		TS:      now,
	}

	reply, err := rt.reply(ctx, userID, text)
	if err != nil {
		return models.Message{}, models.Message{}, err
	}

	botTS := now + int64(rt.ReplyDelay)
	if botTS <= now {
		botTS = now + 1
	}
	botMsg := models.Message{
		ID:      utils.GenMessageID(botTS),
		Sender:  models.SenderBot,
		Content: reply,
		TS:      botTS,
	}
	if err := store.AppendExchange(userID, userMsg, botMsg); err != nil {
		return models.Message{}, models.Message{}, err
	}
	metrics.MessagesSent.Inc()
	return userMsg, botMsg, nil
}

// reply resolves the bot response without touching the conversation.
// The in-flight message is added to the prompt window in memory; it is
// only written once the whole exchange commits.
func (rt *Router) reply(ctx context.Context, userID, text string) (string, error) {
	faqs, err := store.ListFAQs()
	if err != nil {
		return "", err
	}
	if f, ok := MatchFAQ(text, faqs); ok {
		metrics.FAQHits.Inc()
		if err := store.IncFAQHit(f.ID); err != nil {
			logger.Warn("faq_hit_count_failed", "faq", f.ID, "err", err)
		}
		return f.Answer, nil
	}

	if rt.Completer == nil {
		metrics.CompletionFailures.Inc()
		return rt.Apology, nil
	}

	system, err := store.GetSystemPrompt()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("system_prompt_read_failed", "err", err)
		}
		system = rt.SystemPrompt
	}

	history, err := store.ListRecentMessages(userID, rt.HistoryWindow)
	if err != nil {
		return "", err
	}
	pending := models.Message{Sender: models.SenderUser, Content: text}
	turns := BuildPrompt(append(history, pending), rt.HistoryWindow)

	out, err := rt.Completer.Complete(ctx, system, turns)
	if err != nil {
		metrics.CompletionFailures.Inc()
		logger.Error("completion_failed", "user", userID, "err", err)
		return rt.Apology, nil
	}
	return out, nil
}
