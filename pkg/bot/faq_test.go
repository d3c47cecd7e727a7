package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskchat/pkg/models"
)

func TestMatchFAQ(t *testing.T) {
	faqs := []models.FAQ{
		{ID: "faq-1", Answer: "reset via the login page", Keywords: []string{"password", "reset"}},
		{ID: "faq-2", Answer: "billing runs monthly", Keywords: []string{"billing", "invoice"}},
		{ID: "faq-3", Answer: "duplicate keyword entry", Keywords: []string{"password"}},
	}

	t.Run("case insensitive substring", func(t *testing.T) {
		f, ok := MatchFAQ("How do I change my PASSWORD?", faqs)
		require.True(t, ok)
		assert.Equal(t, "faq-1", f.ID)
	})

	t.Run("keyword inside a larger word", func(t *testing.T) {
		f, ok := MatchFAQ("question about invoices", faqs)
		require.True(t, ok)
		assert.Equal(t, "faq-2", f.ID)
	})

	t.Run("first entry wins ties", func(t *testing.T) {
		f, ok := MatchFAQ("password help", faqs)
		require.True(t, ok)
		assert.Equal(t, "faq-1", f.ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := MatchFAQ("completely unrelated text", faqs)
		assert.False(t, ok)
	})

	t.Run("whitespace only never matches", func(t *testing.T) {
		_, ok := MatchFAQ("   \t\n", faqs)
		assert.False(t, ok)
	})

	t.Run("empty faq table", func(t *testing.T) {
		_, ok := MatchFAQ("password", nil)
		assert.False(t, ok)
	})

	t.Run("blank keywords are skipped", func(t *testing.T) {
		_, ok := MatchFAQ("anything at all", []models.FAQ{{ID: "x", Keywords: []string{"", "  "}}})
		assert.False(t, ok)
	})
}
