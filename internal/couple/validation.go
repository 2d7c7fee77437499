package couple

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxNameLength     = 40
	maxJoinCodeLength = 64
	maxNoteLength     = 500
	maxMessageLength  = 500
	maxCardTextLength = 280
)

// AuthInput is what the UI collects on the login screen.
type AuthInput struct {
	Name         string
	CoupleID     string
	PartnerName  string
	DeviceID     string
	DrawingColor string
}

func validateAuthInput(input AuthInput) (AuthInput, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return input, err
	}
	code, err := NormalizeJoinCode(input.CoupleID)
	if err != nil {
		return input, err
	}
	partnerName, err := validateName(input.PartnerName)
	if err != nil {
		return input, errors.New("partner name is required")
	}
	if strings.EqualFold(name, partnerName) {
		return input, errors.New("partner name must differ from your own")
	}
	input.Name = name
	input.CoupleID = code
	input.PartnerName = partnerName
	return input, nil
}

func validateName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", errors.New("name is required")
	}
	if len(trimmed) > maxNameLength {
		return "", fmt.Errorf("name must be %d characters or fewer", maxNameLength)
	}
	return trimmed, nil
}

func validateNote(content string) (string, error) {
	return validateText("note", content, maxNoteLength)
}

func validateMessage(content string) (string, error) {
	return validateText("message", content, maxMessageLength)
}

func validateCardText(text string) (string, error) {
	return validateText("card text", text, maxCardTextLength)
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

// NormalizeJoinCode lowercases and trims a human-entered couple or partner
// code and rejects anything that is not a URL-safe token.
func NormalizeJoinCode(code string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return "", errors.New("couple identifier is required")
	}
	if len(trimmed) > maxJoinCodeLength {
		return "", fmt.Errorf("couple identifier must be %d characters or fewer", maxJoinCodeLength)
	}
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' || r == '_' {
			continue
		}
		return "", errors.New("couple identifier contains unsupported characters")
	}
	return trimmed, nil
}
