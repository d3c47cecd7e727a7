package bot

import (
	"strings"

	"deskchat/pkg/models"
)

// MatchFAQ scans faqs in order and returns the first entry with a
// keyword appearing as a case-insensitive substring of text. The scan
// order decides keyword ties, so earlier entries win. Whitespace-only
// text never matches.
func MatchFAQ(text string, faqs []models.FAQ) (models.FAQ, bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return models.FAQ{}, false
	}
	for _, f := range faqs {
		for _, kw := range f.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(lowered, kw) {
				return f, true
			}
		}
	}
	return models.FAQ{}, false
}
