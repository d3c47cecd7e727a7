package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Limits caps user-supplied input sizes. Zero fields use the defaults.
type Limits struct {
	MaxMessageLen  int
	MaxQuestionLen int
	MaxAnswerLen   int
	MaxKeywords    int
	MaxUsernameLen int
}

const (
	defaultMaxMessageLen  = 4000
	defaultMaxQuestionLen = 500
	defaultMaxAnswerLen   = 4000
	defaultMaxKeywords    = 32
	defaultMaxUsernameLen = 64
)

var limits = Limits{}

// SetLimits installs process-wide validation limits.
func SetLimits(l Limits) { limits = l }

func maxMessageLen() int {
	if limits.MaxMessageLen > 0 {
		return limits.MaxMessageLen
	}
	return defaultMaxMessageLen
}

// ValidateMessageText checks a chat message body. Whitespace-only text
// is rejected.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("message text is required")
	}
	if n := utf8.RuneCountInString(text); n > maxMessageLen() {
		return fmt.Errorf("message exceeds %d characters", maxMessageLen())
	}
	return nil
}

// ValidateFAQ checks an FAQ entry's fields.
func ValidateFAQ(question, answer string, keywords []string) error {
	maxQ := limits.MaxQuestionLen
	if maxQ == 0 {
		maxQ = defaultMaxQuestionLen
	}
	maxA := limits.MaxAnswerLen
	if maxA == 0 {
		maxA = defaultMaxAnswerLen
	}
	maxK := limits.MaxKeywords
	if maxK == 0 {
		maxK = defaultMaxKeywords
	}
	if strings.TrimSpace(question) == "" {
		return errors.New("question is required")
	}
	if utf8.RuneCountInString(question) > maxQ {
		return fmt.Errorf("question exceeds %d characters", maxQ)
	}
	if strings.TrimSpace(answer) == "" {
		return errors.New("answer is required")
	}
	if utf8.RuneCountInString(answer) > maxA {
		return fmt.Errorf("answer exceeds %d characters", maxA)
	}
	nonEmpty := 0
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return errors.New("at least one keyword is required")
	}
	if nonEmpty > maxK {
		return fmt.Errorf("too many keywords (max %d)", maxK)
	}
	return nil
}

// ValidateUsername checks a registration username.
func ValidateUsername(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("username is required")
	}
	maxU := limits.MaxUsernameLen
	if maxU == 0 {
		maxU = defaultMaxUsernameLen
	}
	if utf8.RuneCountInString(name) > maxU {
		return fmt.Errorf("username exceeds %d characters", maxU)
	}
	for _, r := range name {
		if r == ' ' || r == '\t' || r == '\n' {
			return errors.New("username must not contain whitespace")
		}
	}
	return nil
}

// ValidatePassword checks a registration password.
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(pw) > 128 {
		return errors.New("password exceeds 128 characters")
	}
	return nil
}
