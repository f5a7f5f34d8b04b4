package reply

import (
	"regexp"
	"strings"
)

// Language codes the generator can produce. Anything that is not Japanese
// falls back to English.
const (
	LangEN = "en"
	LangJA = "ja"
)

var japaneseChar = regexp.MustCompile(`[\x{3040}-\x{30ff}\x{4e00}-\x{9faf}]`)

// NormalizeLanguage maps a free-form language hint to "ja" or "en".
func NormalizeLanguage(language string) string {
	if strings.HasPrefix(strings.ToLower(language), "ja") {
		return LangJA
	}
	return LangEN
}

// DetectLanguage picks the reply language. A non-empty preferred language
// wins; otherwise the text is scanned for kana or kanji.
func DetectLanguage(text, preferred string) string {
	if preferred != "" {
		return NormalizeLanguage(preferred)
	}
	if japaneseChar.MatchString(text) {
		return LangJA
	}
	return LangEN
}
