package plugins

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-xview/pkg/plugin"
)

// ErrMissingTranslation is passed to a MissingHandler when no message exists
// for a key.
var ErrMissingTranslation = errors.New("plugins: missing translation")

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string) (string, error)
}

// MissingHandler decides what a missing translation renders as.
type MissingHandler func(locale, key string, err error) string

// Messages is a Translator over locale → key → message tables. A locale
// such as "es-MX" falls back to "es".
type Messages map[string]map[string]string

func (m Messages) Translate(locale, key string) (string, error) {
	for _, candidate := range localeChain(locale) {
		if msg, ok := m[candidate][key]; ok && strings.TrimSpace(msg) != "" {
			return msg, nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, locale, key)
}

// LoadMessages reads a YAML message file.
func LoadMessages(path string) (Messages, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugins: read messages: %w", err)
	}
	var messages Messages
	if err := yaml.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("plugins: decode messages %s: %w", path, err)
	}
	return messages, nil
}

// I18nPlugin translates message keys. Messages come from the YAML file named
// by i18n.path; a missing key renders as the key itself.
type I18nPlugin struct {
	plugin.Base

	Translator    Translator
	DefaultLocale string
	OnMissing     MissingHandler
}

// Init loads the message file when one is configured.
func (p *I18nPlugin) Init(env plugin.Env) error {
	p.DefaultLocale = env.Setting(SettingDefaultLocale, "en")
	path := settingPath(env, SettingI18nPath)
	if path == "" {
		return nil
	}
	messages, err := LoadMessages(path)
	if err != nil {
		return err
	}
	p.Translator = messages
	return nil
}

// T translates key for locale, formatting the message with args when given.
// An empty locale uses the default locale.
func (p *I18nPlugin) T(locale, key string, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if strings.TrimSpace(locale) == "" {
		locale = p.DefaultLocale
	}

	var (
		msg string
		err = ErrMissingTranslation
	)
	if p.Translator != nil {
		msg, err = p.Translator.Translate(locale, key)
	}
	if err != nil {
		if p.OnMissing != nil {
			return p.OnMissing(locale, key, err)
		}
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

func localeChain(locale string) []string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return nil
	}
	chain := []string{locale}
	if base, _, found := strings.Cut(locale, "-"); found && base != "" {
		chain = append(chain, base)
	}
	return chain
}
