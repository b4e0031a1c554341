// Package tex provides escaping helpers for layouts that render TeX
// sources. The regular expressions are compiled at package level and
// shared between template executions.
package tex

import (
	"regexp"
	"text/template"
)

var (
	reBackslash    = regexp.MustCompile(`\\`)
	reCaret        = regexp.MustCompile(`\^`)
	reTilde        = regexp.MustCompile(`~`)
	reSpecialChars = regexp.MustCompile(`([$#&%_{}])`)
	reBackslashFix = regexp.MustCompile(`\\backslash`)
)

// Escape neutralizes TeX control characters in user-supplied strings so
// that an entry title like "50% discount & more" survives compilation.
func Escape(value string) string {
	// Backslashes first, with a placeholder command; the braces added by
	// the later steps would otherwise corrupt it.
	out := reBackslash.ReplaceAllString(value, `\backslash`)
	out = reSpecialChars.ReplaceAllString(out, `\$1`)
	out = reBackslashFix.ReplaceAllString(out, `$\backslash$`)
	out = reCaret.ReplaceAllString(out, `\textasciicircum{}`)
	out = reTilde.ReplaceAllString(out, `\textasciitilde{}`)
	return out
}

// FuncMap returns the template helpers shared by the TeX layouts.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"texescape": Escape,
	}
}
