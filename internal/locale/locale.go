package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const policyDenialPrefix = "PolicyDenial."

// Translator resolves policy reason codes to messages in the caller's language.
type Translator struct {
	bundle    *i18n.Bundle
	matcher   language.Matcher
	supported []language.Tag
	fallback  language.Tag
}

func NewTranslator(defaultLanguage string) (*Translator, error) {
	fallback := language.English
	if defaultLanguage != "" {
		tag, err := language.Parse(defaultLanguage)
		if err != nil {
			return nil, fmt.Errorf("locale: invalid default language %q: %w", defaultLanguage, err)
		}
		fallback = tag
	}

	bundle := i18n.NewBundle(fallback)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		return nil, fmt.Errorf("locale: list message files: %w", err)
	}

	supported := []language.Tag{fallback}
	for _, file := range files {
		buf, err := localeFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("locale: read %s: %w", file, err)
		}
		mf, err := bundle.ParseMessageFileBytes(buf, path.Base(file))
		if err != nil {
			return nil, fmt.Errorf("locale: parse %s: %w", file, err)
		}
		if mf.Tag != fallback {
			supported = append(supported, mf.Tag)
		}
	}

	return &Translator{
		bundle:    bundle,
		matcher:   language.NewMatcher(supported),
		supported: supported,
		fallback:  fallback,
	}, nil
}

// Resolve picks the best supported language for an Accept-Language header value.
func (t *Translator) Resolve(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.fallback
	}
	_, idx, _ := t.matcher.Match(tags...)
	return t.supported[idx]
}

// Message returns the localized text for a policy reason code, or fallback when the
// reason has no translation.
func (t *Translator) Message(acceptLanguage, reason, fallback string) string {
	if t == nil || reason == "" {
		return fallback
	}
	localizer := i18n.NewLocalizer(t.bundle, t.Resolve(acceptLanguage).String())
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: policyDenialPrefix + reason})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}

func (t *Translator) Supported() []string {
	out := make([]string, len(t.supported))
	for i, tag := range t.supported {
		out[i] = tag.String()
	}
	return out
}
