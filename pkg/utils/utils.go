package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JSONError writes a JSON error response with the given status code.
func JSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// JSONWrite writes v as a JSON response with the given status code.
func JSONWrite(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var (
	seqMu   sync.Mutex
	lastTS  int64
	lastSeq int
)

// nextSeq returns the given timestamp with a per-timestamp sequence
// counter so ids minted in the same nanosecond still sort uniquely.
func nextSeq(ts int64) (int64, int) {
	seqMu.Lock()
	defer seqMu.Unlock()
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}
	return ts, lastSeq
}

// GenMessageID returns a sortable message id for the given timestamp.
func GenMessageID(ts int64) string {
	t, seq := nextSeq(ts)
	return fmt.Sprintf("msg-%020d-%06d", t, seq)
}

// GenFAQID returns a sortable FAQ id. Iterating ids in byte order yields
// creation order.
func GenFAQID() string {
	t, seq := nextSeq(time.Now().UnixNano())
	return fmt.Sprintf("faq-%020d-%06d", t, seq)
}

// GenUserID returns a new random user id.
func GenUserID() string {
	return uuid.NewString()
}

// FormatTime renders a nanosecond timestamp for text exports.
func FormatTime(ns int64) string {
	return time.Unix(0, ns).Format("Jan 2, 2006, 3:04 PM")
}
