// Package validation holds input rules shared by the service layer.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field length bounds, counted in characters.
const (
	UsernameMinLen    = 6
	UsernameMaxLen    = 32
	PasswordMinLen    = 6
	PasswordMaxLen    = 72
	EmailMaxLen       = 254
	NameMaxLen        = 255
	CountryMinLen     = 6
	CountryMaxLen     = 24
	BioMaxLen         = 240
	PostContentMinLen = 6
	PostContentMaxLen = 16384
	CommentMinLen     = 6
	CommentMaxLen     = 8192
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateUsername checks length and charset; usernames may not start or end
// with punctuation.
func ValidateUsername(username string) error {
	if err := lengthBetween("username", username, UsernameMinLen, UsernameMaxLen); err != nil {
		return err
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may contain only letters, numbers, '.', '_' and '-'")
	}
	if strings.IndexAny(username[:1], "_.-") == 0 || strings.IndexAny(username[len(username)-1:], "_.-") == 0 {
		return fmt.Errorf("username cannot start or end with punctuation")
	}
	return nil
}

// ValidatePassword enforces bcrypt-compatible length bounds.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLen {
		return fmt.Errorf("password must be at least %d characters", PasswordMinLen)
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > PasswordMaxLen {
		return fmt.Errorf("password must be at most %d bytes", PasswordMaxLen)
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > EmailMaxLen {
		return fmt.Errorf("email must be at most %d characters", EmailMaxLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email is not a valid address")
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") || strings.HasPrefix(domain, ".") {
		return fmt.Errorf("email is not a valid address")
	}
	return nil
}

// ValidateCountry allows an empty value.
func ValidateCountry(country string) error {
	if country == "" {
		return nil
	}
	return lengthBetween("country", country, CountryMinLen, CountryMaxLen)
}

func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > BioMaxLen {
		return fmt.Errorf("bio must be at most %d characters", BioMaxLen)
	}
	return nil
}

func ValidateName(name string) error {
	if utf8.RuneCountInString(name) > NameMaxLen {
		return fmt.Errorf("name must be at most %d characters", NameMaxLen)
	}
	return nil
}

func ValidatePostContent(content string) error {
	return lengthBetween("content", strings.TrimSpace(content), PostContentMinLen, PostContentMaxLen)
}

func ValidateComment(comment string) error {
	return lengthBetween("comment", strings.TrimSpace(comment), CommentMinLen, CommentMaxLen)
}

func lengthBetween(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		return fmt.Errorf("%s must be between %d and %d characters", field, minLen, maxLen)
	}
	return nil
}
