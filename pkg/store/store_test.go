package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskchat/pkg/models"
	"deskchat/pkg/utils"
)

func openTest(t *testing.T) {
	t.Helper()
	require.NoError(t, Open(t.TempDir()))
	t.Cleanup(func() { _ = Close() })
}

func msgAt(ts int64, sender, content string) models.Message {
	return models.Message{ID: utils.GenMessageID(ts), Sender: sender, Content: content, TS: ts}
}

func TestMessageOrdering(t *testing.T) {
	openTest(t)
	base := time.Now().UnixNano()
	for i := 0; i < 5; i++ {
		m := msgAt(base+int64(i), models.SenderUser, fmt.Sprintf("m%d", i))
		require.NoError(t, AppendMessage("u1", m))
	}

	msgs, err := ListMessages("u1")
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		assert.LessOrEqual(t, msgs[i-1].TS, msgs[i].TS)
	}
	assert.Equal(t, "m0", msgs[0].Content)
	assert.Equal(t, "m4", msgs[4].Content)
}

func TestSameTimestampKeepsInsertionOrder(t *testing.T) {
	openTest(t)
	ts := time.Now().UnixNano()
	require.NoError(t, AppendMessage("u1", msgAt(ts, models.SenderUser, "first")))
	require.NoError(t, AppendMessage("u1", msgAt(ts, models.SenderBot, "second")))

	msgs, err := ListMessages("u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestListRecentMessages(t *testing.T) {
	openTest(t)
	base := time.Now().UnixNano()
	for i := 0; i < 20; i++ {
		require.NoError(t, AppendMessage("u1", msgAt(base+int64(i), models.SenderUser, fmt.Sprintf("m%d", i))))
	}
	recent, err := ListRecentMessages("u1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.Equal(t, "m10", recent[0].Content)
	assert.Equal(t, "m19", recent[9].Content)
}

func TestAppendExchange(t *testing.T) {
	openTest(t)
	ts := time.Now().UnixNano()
	userMsg := msgAt(ts, models.SenderUser, "question")
	botMsg := msgAt(ts+500, models.SenderBot, "answer")
	require.NoError(t, AppendExchange("u1", userMsg, botMsg))

	msgs, err := ListMessages("u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "answer", msgs[1].Content)

	conv, err := GetConversation("u1")
	require.NoError(t, err)
	assert.Equal(t, userMsg.TS, conv.CreatedTS)
	assert.Equal(t, botMsg.TS, conv.UpdatedTS)

	// a second exchange keeps the creation time and bumps the update time
	next := msgAt(ts+1000, models.SenderUser, "more")
	nextBot := msgAt(ts+1500, models.SenderBot, "sure")
	require.NoError(t, AppendExchange("u1", next, nextBot))
	conv, err = GetConversation("u1")
	require.NoError(t, err)
	assert.Equal(t, userMsg.TS, conv.CreatedTS)
	assert.Equal(t, nextBot.TS, conv.UpdatedTS)
}

func TestConversationMetadata(t *testing.T) {
	openTest(t)
	_, err := GetConversation("u1")
	assert.ErrorIs(t, err, ErrNotFound)

	first := msgAt(time.Now().UnixNano(), models.SenderUser, "hello")
	require.NoError(t, AppendMessage("u1", first))
	second := msgAt(first.TS+100, models.SenderBot, "hi")
	require.NoError(t, AppendMessage("u1", second))

	conv, err := GetConversation("u1")
	require.NoError(t, err)
	assert.Equal(t, first.TS, conv.CreatedTS)
	assert.Equal(t, second.TS, conv.UpdatedTS)
}

func TestConversationIsolation(t *testing.T) {
	openTest(t)
	require.NoError(t, AppendMessage("u1", msgAt(time.Now().UnixNano(), models.SenderUser, "mine")))
	require.NoError(t, AppendMessage("u2", msgAt(time.Now().UnixNano(), models.SenderUser, "theirs")))

	msgs, err := ListMessages("u1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "mine", msgs[0].Content)
}

func TestDeleteConversation(t *testing.T) {
	openTest(t)
	require.NoError(t, AppendMessage("u1", msgAt(time.Now().UnixNano(), models.SenderUser, "bye")))
	require.NoError(t, DeleteConversation("u1"))

	msgs, err := ListMessages("u1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	_, err = GetConversation("u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleReaction(t *testing.T) {
	openTest(t)
	m := msgAt(time.Now().UnixNano(), models.SenderBot, "answer")
	require.NoError(t, AppendMessage("u1", m))

	got, err := ToggleReaction("u1", m.ID, "u1", "helpful")
	require.NoError(t, err)
	assert.Equal(t, "helpful", got.Reactions["u1"])

	got, err = ToggleReaction("u1", m.ID, "u1", "like")
	require.NoError(t, err)
	assert.Equal(t, "like", got.Reactions["u1"])

	// same reaction again removes it
	got, err = ToggleReaction("u1", m.ID, "u1", "like")
	require.NoError(t, err)
	assert.NotContains(t, got.Reactions, "u1")

	_, err = ToggleReaction("u1", "msg-missing", "u1", "like")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFAQCRUDAndOrder(t *testing.T) {
	openTest(t)
	var ids []string
	for i := 0; i < 3; i++ {
		f := models.FAQ{
			ID:       utils.GenFAQID(),
			Question: fmt.Sprintf("q%d", i),
			Answer:   fmt.Sprintf("a%d", i),
			Keywords: []string{fmt.Sprintf("kw%d", i)},
		}
		require.NoError(t, SaveFAQ(f))
		ids = append(ids, f.ID)
	}

	faqs, err := ListFAQs()
	require.NoError(t, err)
	require.Len(t, faqs, 3)
	for i, f := range faqs {
		assert.Equal(t, ids[i], f.ID, "list order must be creation order")
	}

	got, err := GetFAQ(ids[1])
	require.NoError(t, err)
	assert.Equal(t, "q1", got.Question)

	require.NoError(t, DeleteFAQ(ids[1]))
	_, err = GetFAQ(ids[1])
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, DeleteFAQ(ids[1]), ErrNotFound)
}

func TestFAQHitCounters(t *testing.T) {
	openTest(t)
	f := models.FAQ{ID: utils.GenFAQID(), Question: "q", Answer: "a", Keywords: []string{"k"}}
	require.NoError(t, SaveFAQ(f))

	hits, err := FAQHits(f.ID)
	require.NoError(t, err)
	assert.Zero(t, hits)

	require.NoError(t, IncFAQHit(f.ID))
	require.NoError(t, IncFAQHit(f.ID))
	hits, err = FAQHits(f.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits)

	// the counter lives outside the record
	got, err := GetFAQ(f.ID)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	require.NoError(t, DeleteFAQ(f.ID))
	hits, err = FAQHits(f.ID)
	require.NoError(t, err)
	assert.Zero(t, hits, "deleting the entry clears its counter")
}

func TestUsers(t *testing.T) {
	openTest(t)
	u := models.User{ID: "id-1", Username: "Alice", PasswordHash: "h", CreatedTS: time.Now().UnixNano()}
	require.NoError(t, CreateUser(u))

	t.Run("username unique case insensitively", func(t *testing.T) {
		err := CreateUser(models.User{ID: "id-2", Username: "alice"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("lookup by id and name", func(t *testing.T) {
		got, err := GetUser("id-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Username)

		got, err = GetUserByUsername("ALICE")
		require.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
	})

	t.Run("update", func(t *testing.T) {
		u.LastLoginTS = time.Now().UnixNano()
		require.NoError(t, UpdateUser(u))
		got, err := GetUser("id-1")
		require.NoError(t, err)
		assert.Equal(t, u.LastLoginTS, got.LastLoginTS)
	})

	t.Run("count", func(t *testing.T) {
		n, err := CountUsers()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestSystemPrompt(t *testing.T) {
	openTest(t)
	_, err := GetSystemPrompt()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetSystemPrompt("answer in pirate speak"))
	got, err := GetSystemPrompt()
	require.NoError(t, err)
	assert.Equal(t, "answer in pirate speak", got)
}

func TestReadyLifecycle(t *testing.T) {
	assert.False(t, Ready())
	require.NoError(t, Open(t.TempDir()))
	assert.True(t, Ready())
	require.NoError(t, Close())
	assert.False(t, Ready())
}
