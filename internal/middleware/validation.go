package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	maxUserIDLength  = 128
	maxMessageLength = 4096
)

// ValidateUserID checks that a channel user identifier is usable as a
// session key.
func ValidateUserID(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}
	if len(userID) > maxUserIDLength {
		return errors.New("user id too long")
	}
	if strings.ContainsAny(userID, " \t\n:") {
		return errors.New("user id contains invalid characters")
	}
	return nil
}

// ValidateMessageContent checks an inbound message body.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return errors.New("message content too long")
	}
	if !utf8.ValidString(content) {
		return errors.New("message content is not valid UTF-8")
	}
	return nil
}
