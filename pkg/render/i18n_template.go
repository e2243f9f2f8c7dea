package render

import (
	"fmt"
	"strings"
)

// TemplateI18nConfig configures template-level translation helpers.
type TemplateI18nConfig struct {
	// LocaleKey selects the key used to read the locale when templates pass
	// a map instead of a raw string. Defaults to "locale".
	LocaleKey string
	// FuncName customises the translator helper name (defaults to "translate").
	FuncName string
	// OnMissing controls the string returned when a translation is missing.
	OnMissing MissingTranslationHandler
}

// TemplateI18nFuncs returns helpers for template engines (see
// gotemplate.WithTemplateFunc):
//
//	translate(localeSrc, key, ...args) string
//	translate_reason(localeSrc, reason) string
//	current_locale(localeSrc) string
//
// localeSrc is either a locale string ("en-US") or a map holding it under
// cfg.LocaleKey.
func TemplateI18nFuncs(t Translator, cfg TemplateI18nConfig) map[string]any {
	localeKey := strings.TrimSpace(cfg.LocaleKey)
	if localeKey == "" {
		localeKey = "locale"
	}

	translateName := strings.TrimSpace(cfg.FuncName)
	if translateName == "" {
		translateName = "translate"
	}

	onMissing := cfg.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}

	lookup := func(locale, key string, params []any) string {
		if t == nil {
			return onMissing(locale, key, params, ErrMissingTranslator)
		}
		msg, err := t.Translate(locale, key, params...)
		if err != nil || strings.TrimSpace(msg) == "" {
			return onMissing(locale, key, params, err)
		}
		return msg
	}

	return map[string]any{
		translateName: func(localeSrc any, key string, params ...any) string {
			key = strings.TrimSpace(key)
			if key == "" {
				return ""
			}
			return lookup(resolveLocale(localeSrc, localeKey), key, params)
		},
		translateName + "_reason": func(localeSrc any, reason string) string {
			key, args := ReasonKey(reason)
			return lookup(resolveLocale(localeSrc, localeKey), key, append(args, map[string]any{"default": reason}))
		},
		"current_locale": func(localeSrc any) string {
			return resolveLocale(localeSrc, localeKey)
		},
	}
}

func resolveLocale(src any, key string) string {
	switch data := src.(type) {
	case nil:
		return ""
	case string:
		return data
	case map[string]string:
		return data[key]
	case map[string]any:
		v, ok := data[key]
		if !ok || v == nil {
			return ""
		}
		if str, ok := v.(string); ok {
			return str
		}
		return strings.TrimSpace(fmt.Sprint(v))
	default:
		return ""
	}
}
