package chunk

import (
	"regexp"
)

// docToken splits documentation text for token-window chunking. CJK
// ideographs and kana/hangul are emitted one rune per token so overlap
// windows stay meaningful for unspaced scripts, while Latin words and numbers
// stay whole. Everything else that is not whitespace becomes a single-rune
// token.
var docToken = regexp.MustCompile(
	`[\p{Han}]|[\p{Hiragana}\p{Katakana}]|[\p{Hangul}]|[A-Za-z0-9_]+|[^\s\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}]`)

// TokenizeDoc splits prose into tokens for token-window chunking.
func TokenizeDoc(text string) []string {
	return docToken.FindAllString(text, -1)
}
