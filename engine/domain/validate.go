package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxQueryLength bounds chat query length in runes.
const MaxQueryLength = 1000

// ValidateChatQuery validates a user chat query before retrieval.
func ValidateChatQuery(query string) error {
	text := strings.TrimSpace(query)
	if text == "" {
		return NewValidationError("query", query, ErrEmptyQuery)
	}
	if utf8.RuneCountInString(text) > MaxQueryLength {
		return NewValidationError("query", text[:32]+"...", ErrQueryTooLong)
	}
	return nil
}

// ValidateDocuments checks a batch of extracted documents before analysis.
// Documents with blank content are tolerated here; the classifier handles
// them with its default category and zero amount.
func ValidateDocuments(docs []Document) error {
	if len(docs) == 0 {
		return ErrNoDocuments
	}
	for _, d := range docs {
		if strings.TrimSpace(d.ID) == "" {
			return NewValidationError("id", d.ID, ErrBadContainer)
		}
	}
	return nil
}

// ValidateEmployee checks the owner label attached to a batch.
func ValidateEmployee(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("employee", name, ErrInputValidation)
	}
	return nil
}
