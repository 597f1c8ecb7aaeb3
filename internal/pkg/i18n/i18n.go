package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const DefaultLocale = "en"

type Translations map[string]string

//go:embed locales
var embedded embed.FS

var (
	locales  = make(map[string]Translations)
	mu       sync.RWMutex
	loadOnce sync.Once
)

// LoadTranslations reads <locale>/notifications.yaml for every locale
// directory under root in fsys.
func LoadTranslations(fsys fs.FS, root string) error {
	mu.Lock()
	defer mu.Unlock()

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		locale := entry.Name()
		filePath := path.Join(root, locale, "notifications.yaml")

		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			continue
		}

		var catalog struct {
			Notifications Translations `yaml:"NOTIFICATIONS"`
		}
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filePath, err)
		}

		locales[locale] = catalog.Notifications
	}

	return nil
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() error {
	return LoadTranslations(embedded, "locales")
}

func ensureLoaded() {
	loadOnce.Do(func() {
		mu.RLock()
		empty := len(locales) == 0
		mu.RUnlock()
		if empty {
			_ = LoadEmbedded()
		}
	})
}

func HasLocale(locale string) bool {
	ensureLoaded()
	mu.RLock()
	defer mu.RUnlock()
	_, ok := locales[locale]
	return ok
}

func Translate(locale, key string) string {
	ensureLoaded()
	mu.RLock()
	defer mu.RUnlock()

	if trans, ok := locales[locale]; ok {
		if val, ok := trans[key]; ok {
			return val
		}
	}

	if locale != DefaultLocale {
		if trans, ok := locales[DefaultLocale]; ok {
			if val, ok := trans[key]; ok {
				return val
			}
		}
	}

	return key
}

// Format translates key and substitutes {name} placeholders from args.
func Format(locale, key string, args map[string]string) string {
	text := Translate(locale, key)
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
