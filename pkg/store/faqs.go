package store

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"

	"deskchat/pkg/models"
)

func faqKey(id string) []byte { return []byte("faq:" + id) }

func faqHitKey(id string) []byte { return []byte("faqhits:" + id) }

// SaveFAQ writes an FAQ entry, creating or replacing it.
func SaveFAQ(f models.FAQ) error {
	if db == nil {
		return errors.New("store not open")
	}
	b, err := json.Marshal(f)
	if err != nil {
		return opResult("save_faq", err)
	}
	return opResult("save_faq", db.Set(faqKey(f.ID), b, pebble.Sync))
}

// GetFAQ returns a single FAQ entry.
func GetFAQ(id string) (models.FAQ, error) {
	var f models.FAQ
	if db == nil {
		return f, errors.New("store not open")
	}
	v, closer, err := db.Get(faqKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return f, opResult("get_faq", ErrNotFound)
		}
		return f, opResult("get_faq", err)
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &f); err != nil {
		return f, opResult("get_faq", err)
	}
	return f, opResult("get_faq", nil)
}

// ListFAQs returns all FAQ entries in creation order. Matching walks this
// slice front to back, so older entries win keyword ties.
func ListFAQs() ([]models.FAQ, error) {
	if db == nil {
		return nil, errors.New("store not open")
	}
	prefix := []byte("faq:")
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, opResult("list_faqs", err)
	}
	defer iter.Close()

	var out []models.FAQ
	for iter.First(); iter.Valid(); iter.Next() {
		var f models.FAQ
		if err := json.Unmarshal(iter.Value(), &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, opResult("list_faqs", iter.Error())
}

// DeleteFAQ removes an FAQ entry and its hit counter. Deleting an
// unknown id returns ErrNotFound.
func DeleteFAQ(id string) error {
	if db == nil {
		return errors.New("store not open")
	}
	if _, err := GetFAQ(id); err != nil {
		return err
	}
	batch := db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(faqKey(id), nil); err != nil {
		return opResult("delete_faq", err)
	}
	if err := batch.Delete(faqHitKey(id), nil); err != nil {
		return opResult("delete_faq", err)
	}
	return opResult("delete_faq", batch.Commit(pebble.Sync))
}

// Hit counters live under their own keys so matching never rewrites the
// admin-owned FAQ record. The mutex serializes the read-modify-write.
var hitMu sync.Mutex

func readCounter(key []byte) (int64, error) {
	v, closer, err := db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	defer closer.Close()
	return strconv.ParseInt(string(v), 10, 64)
}

// IncFAQHit bumps the hit counter for an FAQ entry.
func IncFAQHit(id string) error {
	if db == nil {
		return errors.New("store not open")
	}
	hitMu.Lock()
	defer hitMu.Unlock()
	n, err := readCounter(faqHitKey(id))
	if err != nil {
		return opResult("inc_faq_hit", err)
	}
	return opResult("inc_faq_hit", db.Set(faqHitKey(id), []byte(strconv.FormatInt(n+1, 10)), pebble.Sync))
}

// FAQHits returns the hit counter for an FAQ entry; entries never hit
// report zero.
func FAQHits(id string) (int64, error) {
	if db == nil {
		return 0, errors.New("store not open")
	}
	hitMu.Lock()
	defer hitMu.Unlock()
	n, err := readCounter(faqHitKey(id))
	return n, opResult("get_faq_hits", err)
}
