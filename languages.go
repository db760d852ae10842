package mirrorlai

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// LanguageNames maps locale codes to human-readable names for AI prompts.
var LanguageNames = map[string]string{
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"de_DE": "German (Germany)",
	"es_ES": "Spanish (Spain)",
	"es_MX": "Spanish (Mexico)",
	"es_CR": "Spanish (Costa Rica)",
	"fr_FR": "French (France)",
	"it_IT": "Italian (Italy)",
	"ja_JP": "Japanese (Japan)",
	"pt_BR": "Portuguese (Brazil)",
	"pt_PT": "Portuguese (Portugal)",
	"ru_RU": "Russian (Russia)",
	"zh_CN": "Chinese (Simplified)",
	"ar_SA": "Arabic (Saudi Arabia)",
	"he_IL": "Hebrew (Israel)",
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"en": "en_US",
	"de": "de_DE",
	"es": "es_ES",
	"fr": "fr_FR",
	"it": "it_IT",
	"ja": "ja_JP",
	"pt": "pt_BR",
	"ru": "ru_RU",
	"zh": "zh_CN",
	"ar": "ar_SA",
	"he": "he_IL",
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	if name, ok := LanguageNames[langCode]; ok {
		return name
	}
	if locale, ok := ShortCodeToLocale[langCode]; ok {
		if name, ok := LanguageNames[locale]; ok {
			return name
		}
	}
	return langCode
}

// ParseLocale validates a locale code ("es", "es_ES", "es-ES") and returns
// it in underscore form.
func ParseLocale(code string) (string, error) {
	tag, err := language.Parse(ToHTMLLang(code))
	if err != nil {
		return "", err
	}
	return NormalizeLocale(tag.String()), nil
}

// BaseLang extracts the lower-case base language code (e.g., "en" from "en_US").
func BaseLang(langCode string) string {
	base := strings.Split(NormalizeLocale(langCode), "_")[0]
	return strings.ToLower(base)
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(langCode string) string {
	if RTLLanguages[BaseLang(langCode)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(langCode string) bool {
	return GetDirection(langCode) == "rtl"
}

// NormalizeLocale converts a language code to the standard format (e.g., "es-ES" → "es_ES").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(langCode, "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "es_ES" → "es-ES").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(langCode, "_", "-")
}

// LocalePaths maps the public locale prefix of the mirror ("es") onto the
// prefix the upstream site serves ("en").
type LocalePaths struct {
	Public   string
	Upstream string
}

// Home returns the public locale home, e.g. "/es/".
func (l LocalePaths) Home() string {
	return "/" + l.Public + "/"
}

// UpstreamHome returns the upstream locale home, e.g. "/en/".
func (l LocalePaths) UpstreamHome() string {
	return "/" + l.Upstream + "/"
}

// Matches reports whether path lies under the public locale prefix.
func (l LocalePaths) Matches(path string) bool {
	return hasSegmentPrefix(path, "/"+l.Public)
}

// ToUpstream rewrites a public locale path to its upstream equivalent.
// Paths outside the locale are returned unchanged.
func (l LocalePaths) ToUpstream(path string) string {
	prefix := "/" + l.Public
	if !hasSegmentPrefix(path, prefix) {
		return path
	}
	return "/" + l.Upstream + path[len(prefix):]
}

var (
	absoluteOrSchemeLink = regexp.MustCompile(`^((https?:)?//|[a-zA-Z]+:)`)
)

// NormalizeLink keeps a root-relative link inside the public locale space.
// Upstream-locale links and the bare root are moved to the public locale;
// external, scheme and fragment links are left alone. The second result
// reports whether href changed.
func (l LocalePaths) NormalizeLink(href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") || absoluteOrSchemeLink.MatchString(href) {
		return href, false
	}

	upstream := "/" + l.Upstream
	switch {
	case href == upstream || href == upstream+"/":
		return l.Home(), true
	case strings.HasPrefix(href, upstream+"/"):
		return l.Home() + href[len(upstream)+1:], true
	case href == "/":
		return l.Home(), true
	}
	return href, false
}

// hasSegmentPrefix reports whether path starts with prefix followed by the
// end of the string or a non-word character.
func hasSegmentPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	c := path[len(prefix)]
	isWord := c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return !isWord
}
