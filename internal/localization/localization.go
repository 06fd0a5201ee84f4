// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON files and provides a simple way to get
// localized strings for different languages.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embedded embed.FS

const fallbackLang = "en"

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
	matcher      language.Matcher
	tags         []string
}

// Default returns a Localizer built from the locales shipped with the binary.
func Default() (*Localizer, error) {
	return NewLocalizerFS(embedded, "locales")
}

// NewLocalizerFS creates and returns a new Localizer instance.
// It loads all translations from dir inside fsys.
// The directory should contain JSON files named with the language code (e.g., "en.json").
func NewLocalizerFS(fsys fs.FS, dir string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	l.buildMatcher()
	return l, nil
}

func (l *Localizer) buildMatcher() {
	l.tags = l.tags[:0]
	for lang := range l.translations {
		l.tags = append(l.tags, lang)
	}
	// Мова за замовчуванням має бути першою для matcher.
	sort.Slice(l.tags, func(i, j int) bool {
		if l.tags[i] == fallbackLang || l.tags[j] == fallbackLang {
			return l.tags[i] == fallbackLang
		}
		return l.tags[i] < l.tags[j]
	})

	supported := make([]language.Tag, 0, len(l.tags))
	for _, lang := range l.tags {
		supported = append(supported, language.Make(lang))
	}
	l.matcher = language.NewMatcher(supported)
}

// Languages returns the loaded language codes, default language first.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.tags...)
}

// Match picks the best loaded language for an Accept-Language header value.
func (l *Localizer) Match(acceptLanguage string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.tags) == 0 {
		return fallbackLang
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return l.tags[0]
	}
	_, idx, _ := l.matcher.Match(prefs...)
	return l.tags[idx]
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	// Fallback to a default language if the key is not found in the specified language
	if lang != fallbackLang {
		if enTranslations, ok := l.translations[fallbackLang]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}
