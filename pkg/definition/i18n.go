package definition

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingTranslation is returned by Messages when a key has no entry for
// the requested locale or its base language.
var ErrMissingTranslation = errors.New("definition: missing translation")

// Translator resolves translation keys used by `textKey` entries.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate calls the underlying function.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// Messages is an in-memory Translator keyed by locale then translation key.
// Lookups fall back from a regional locale ("es-MX") to its base ("es").
type Messages map[string]map[string]string

// Translate implements Translator. Arguments are ignored.
func (m Messages) Translate(locale, key string, _ ...any) (string, error) {
	for _, candidate := range localeChain(locale) {
		if msg, ok := m[candidate][key]; ok && strings.TrimSpace(msg) != "" {
			return msg, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrMissingTranslation, key, locale)
}

func localeChain(locale string) []string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return nil
	}
	chain := []string{locale}
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		chain = append(chain, locale[:idx])
	}
	return chain
}

// LoadMessagesFS reads a JSON or YAML messages file shaped as
// {locale: {key: text}}.
func LoadMessagesFS(fsys fs.FS, name string) (Messages, error) {
	if fsys == nil {
		return nil, fmt.Errorf("definition: filesystem is required")
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", name, err)
	}
	var messages Messages
	if err := json.Unmarshal(data, &messages); err == nil {
		return messages, nil
	}
	if err := yaml.Unmarshal(data, &messages); err == nil {
		return messages, nil
	}
	return nil, fmt.Errorf("definition: parse %s: invalid JSON or YAML", name)
}

// translate resolves key, falling back to the existing text and finally the
// key itself so a missing catalogue never blanks a button.
func translate(t Translator, locale, key, fallback string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if t != nil {
		if result, err := t.Translate(locale, key); err == nil && strings.TrimSpace(result) != "" {
			return result
		}
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}
