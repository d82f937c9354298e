package server

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength     = 20
	maxChatLength     = 280
	maxCategoryLength = 32
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			_, err := validateCategory(fl.Field().String())
			return err == nil
		})
	})
}

func validateName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" || len(trimmed) > maxNameLength || !isSafeText(trimmed) {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

func validateChat(text string) (string, bool) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", false
	}
	if len(trimmed) > maxChatLength {
		cut := maxChatLength
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}
	return trimmed, true
}

func validateCategory(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil
	}
	if len(trimmed) > maxCategoryLength {
		return "", ErrInvalidCategory
	}
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' || r == '_' || r == ' ' {
			continue
		}
		return "", ErrInvalidCategory
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '.', '!', '?', '&', '(', ')':
			continue
		default:
			return false
		}
	}
	return true
}
