package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"deskchat/pkg/logger"
	"deskchat/pkg/models"
	"deskchat/pkg/store"
	"deskchat/pkg/utils"
	"deskchat/pkg/validation"
)

type faqReq struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
}

func normalizeKeywords(kws []string) []string {
	out := make([]string, 0, len(kws))
	seen := map[string]bool{}
	for _, k := range kws {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func faqMatchesQuery(f models.FAQ, q string) bool {
	if strings.Contains(strings.ToLower(f.Question), q) ||
		strings.Contains(strings.ToLower(f.Answer), q) {
		return true
	}
	for _, kw := range f.Keywords {
		if strings.Contains(kw, q) {
			return true
		}
	}
	return false
}

// ListFAQs returns FAQ entries in creation (match-priority) order, with
// optional search, category filter and offset/limit pagination.
func ListFAQs(w http.ResponseWriter, r *http.Request) {
	faqs, err := store.ListFAQs()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to load faqs")
		return
	}

	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if q != "" || category != "" {
		filtered := faqs[:0]
		for _, f := range faqs {
			if category != "" && !strings.EqualFold(f.Category, category) {
				continue
			}
			if q != "" && !faqMatchesQuery(f, q) {
				continue
			}
			filtered = append(filtered, f)
		}
		faqs = filtered
	}

	total := len(faqs)
	offset := intQuery(r, "offset", 0)
	limit := intQuery(r, "limit", 0)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	page := faqs[offset:end]
	if page == nil {
		page = []models.FAQ{}
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{
		"faqs":   page,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// CreateFAQ adds a new FAQ entry.
func CreateFAQ(w http.ResponseWriter, r *http.Request) {
	var req faqReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Keywords = normalizeKeywords(req.Keywords)
	if err := validation.ValidateFAQ(req.Question, req.Answer, req.Keywords); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := time.Now().UnixNano()
	f := models.FAQ{
		ID:        utils.GenFAQID(),
		Question:  strings.TrimSpace(req.Question),
		Answer:    req.Answer,
		Keywords:  req.Keywords,
		Category:  strings.TrimSpace(req.Category),
		CreatedTS: now,
		UpdatedTS: now,
	}
	if err := store.SaveFAQ(f); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to store faq")
		return
	}
	logger.Info("faq_created", "faq", f.ID)
	utils.JSONWrite(w, http.StatusCreated, f)
}

// GetFAQHandler returns one FAQ entry.
func GetFAQHandler(w http.ResponseWriter, r *http.Request) {
	f, err := store.GetFAQ(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "faq not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to load faq")
		return
	}
	utils.JSONWrite(w, http.StatusOK, f)
}

// UpdateFAQ replaces an FAQ entry's editable fields. The id and creation
// time are preserved so match priority does not change on edit.
func UpdateFAQ(w http.ResponseWriter, r *http.Request) {
	f, err := store.GetFAQ(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "faq not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to load faq")
		return
	}
	var req faqReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Keywords = normalizeKeywords(req.Keywords)
	if err := validation.ValidateFAQ(req.Question, req.Answer, req.Keywords); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Question = strings.TrimSpace(req.Question)
	f.Answer = req.Answer
	f.Keywords = req.Keywords
	f.Category = strings.TrimSpace(req.Category)
	f.UpdatedTS = time.Now().UnixNano()
	if err := store.SaveFAQ(f); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to store faq")
		return
	}
	utils.JSONWrite(w, http.StatusOK, f)
}

// DeleteFAQHandler removes an FAQ entry.
func DeleteFAQHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := store.DeleteFAQ(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "faq not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "failed to delete faq")
		return
	}
	logger.Info("faq_deleted", "faq", id)
	w.WriteHeader(http.StatusNoContent)
}

// FAQAnalytics summarizes match counts per entry (busiest first), per
// category, and the most used keywords.
func FAQAnalytics(w http.ResponseWriter, r *http.Request) {
	faqs, err := store.ListFAQs()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to load faqs")
		return
	}
	type row struct {
		ID         string `json:"id"`
		Question   string `json:"question"`
		Category   string `json:"category"`
		MatchCount int64  `json:"match_count"`
	}
	var total int64
	rows := make([]row, 0, len(faqs))
	byCategory := map[string]int64{}
	keywordUse := map[string]int64{}
	for _, f := range faqs {
		hits, err := store.FAQHits(f.ID)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "failed to load faq hits")
			return
		}
		total += hits
		rows = append(rows, row{ID: f.ID, Question: f.Question, Category: f.Category, MatchCount: hits})
		cat := f.Category
		if cat == "" {
			cat = "uncategorized"
		}
		byCategory[cat] += hits
		for _, kw := range f.Keywords {
			keywordUse[kw] += hits
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].MatchCount > rows[j].MatchCount
	})

	type kwRow struct {
		Keyword    string `json:"keyword"`
		MatchCount int64  `json:"match_count"`
	}
	top := make([]kwRow, 0, len(keywordUse))
	for kw, n := range keywordUse {
		top = append(top, kwRow{Keyword: kw, MatchCount: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].MatchCount != top[j].MatchCount {
			return top[i].MatchCount > top[j].MatchCount
		}
		return top[i].Keyword < top[j].Keyword
	})
	if len(top) > 10 {
		top = top[:10]
	}

	utils.JSONWrite(w, http.StatusOK, map[string]any{
		"total_matches": total,
		"faqs":          rows,
		"by_category":   byCategory,
		"top_keywords":  top,
	})
}
