package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskchat/pkg/llm"
	"deskchat/pkg/models"
	"deskchat/pkg/store"
	"deskchat/pkg/utils"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
	// captured arguments from the last call
	system string
	turns  []llm.Turn
}

func (s *stubCompleter) Complete(_ context.Context, system string, turns []llm.Turn) (string, error) {
	s.calls++
	s.system = system
	s.turns = turns
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
}

func newRouter(c llm.Completer) *Router {
	return &Router{
		Completer:     c,
		HistoryWindow: 10,
		ReplyDelay:    500 * time.Millisecond,
		Apology:       "sorry, try again later",
		SystemPrompt:  "you are a support bot",
	}
}

func TestRouterFAQHit(t *testing.T) {
	openTestStore(t)
	require.NoError(t, store.SaveFAQ(models.FAQ{
		ID: utils.GenFAQID(), Answer: "We ship within 2 days.", Keywords: []string{"shipping"},
	}))

	c := &stubCompleter{reply: "llm answer"}
	userMsg, botMsg, err := newRouter(c).Respond(context.Background(), "u1", "what about SHIPPING times?")
	require.NoError(t, err)

	assert.Equal(t, "We ship within 2 days.", botMsg.Content)
	assert.Zero(t, c.calls, "FAQ hit must not reach the completion backend")
	assert.Equal(t, models.SenderUser, userMsg.Sender)
	assert.Equal(t, models.SenderBot, botMsg.Sender)
	assert.Greater(t, botMsg.TS, userMsg.TS)

	faqs, err := store.ListFAQs()
	require.NoError(t, err)
	require.Len(t, faqs, 1)
	hits, err := store.FAQHits(faqs[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits)
}

func TestRouterFAQHitDoesNotRewriteEntry(t *testing.T) {
	openTestStore(t)
	f := models.FAQ{
		ID:       utils.GenFAQID(),
		Question: "When do you ship?",
		Answer:   "We ship within 2 days.",
		Keywords: []string{"shipping"},
	}
	require.NoError(t, store.SaveFAQ(f))

	_, _, err := newRouter(&stubCompleter{}).Respond(context.Background(), "u1", "shipping please")
	require.NoError(t, err)

	got, err := store.GetFAQ(f.ID)
	require.NoError(t, err)
	assert.Equal(t, f, got, "matching must not rewrite the stored record")

	hits, err := store.FAQHits(f.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits)
}

func TestRouterCompletionFallthrough(t *testing.T) {
	openTestStore(t)
	c := &stubCompleter{reply: "the llm says hi"}

	_, botMsg, err := newRouter(c).Respond(context.Background(), "u1", "something without keywords")
	require.NoError(t, err)
	assert.Equal(t, "the llm says hi", botMsg.Content)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, "you are a support bot", c.system)
	// the just-appended user message is part of the prompt window
	require.NotEmpty(t, c.turns)
	assert.Equal(t, "something without keywords", c.turns[len(c.turns)-1].Content)
	assert.Equal(t, "user", c.turns[len(c.turns)-1].Role)
}

func TestRouterCompletionFailureApology(t *testing.T) {
	openTestStore(t)
	c := &stubCompleter{err: &llm.CompletionError{Err: errors.New("upstream 502")}}

	_, botMsg, err := newRouter(c).Respond(context.Background(), "u1", "tell me something")
	require.NoError(t, err, "completion failures must not surface to the caller")
	assert.Equal(t, "sorry, try again later", botMsg.Content)

	// both messages were still persisted
	msgs, err := store.ListMessages("u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderBot, msgs[1].Sender)
}

func TestRouterNoCompleter(t *testing.T) {
	openTestStore(t)
	_, botMsg, err := newRouter(nil).Respond(context.Background(), "u1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "sorry, try again later", botMsg.Content)
}

func TestRouterStoredSystemPromptWins(t *testing.T) {
	openTestStore(t)
	require.NoError(t, store.SetSystemPrompt("be extremely terse"))

	c := &stubCompleter{reply: "ok"}
	_, _, err := newRouter(c).Respond(context.Background(), "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "be extremely terse", c.system)
}

// gatedCompleter blocks inside Complete until released, exposing the
// window between reply computation and persistence.
type gatedCompleter struct {
	entered  chan struct{}
	released chan struct{}
}

func (g *gatedCompleter) Complete(context.Context, string, []llm.Turn) (string, error) {
	g.entered <- struct{}{}
	<-g.released
	return "late reply", nil
}

func TestRouterFailedSendLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, store.Open(dir))

	g := &gatedCompleter{entered: make(chan struct{}), released: make(chan struct{})}
	rt := newRouter(g)

	done := make(chan error, 1)
	go func() {
		_, _, err := rt.Respond(context.Background(), "u1", "no keyword here")
		done <- err
	}()

	<-g.entered
	require.NoError(t, store.Close())
	close(g.released)
	require.Error(t, <-done, "send must fail once the store is gone")

	require.NoError(t, store.Open(dir))
	t.Cleanup(func() { _ = store.Close() })
	msgs, err := store.ListMessages("u1")
	require.NoError(t, err)
	assert.Empty(t, msgs, "a failed send must leave no messages behind")
	_, err = store.GetConversation("u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRouterSurfacesStorageFailure(t *testing.T) {
	// store deliberately not open
	_, _, err := newRouter(&stubCompleter{reply: "ok"}).Respond(context.Background(), "u1", "hello")
	assert.Error(t, err)
}

func TestRouterHistoryWindow(t *testing.T) {
	openTestStore(t)
	c := &stubCompleter{reply: "ok"}
	rt := newRouter(c)
	for i := 0; i < 8; i++ {
		_, _, err := rt.Respond(context.Background(), "u1", "message without any keyword")
		require.NoError(t, err)
	}
	// 16 stored messages by now; the window caps the prompt at 10 turns
	assert.Len(t, c.turns, 10)
}
