package models

// FAQ is a globally shared question/answer record matched against incoming
// messages by keyword. Keywords are stored lowercased. Hit counts are kept
// in separate store keys, not on the record.
type FAQ struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Keywords  []string `json:"keywords"`
	Category  string   `json:"category"`
	CreatedTS int64    `json:"created_ts"`
	UpdatedTS int64    `json:"updated_ts"`
}
