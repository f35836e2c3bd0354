package service

import (
	"regexp"
	"strings"
)

var (
	reHorizontalSpace  = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	reSpaceAroundBreak = regexp.MustCompile(` *\n *`)
	reBlankLines       = regexp.MustCompile(`\n{3,}`)
	reTrailingEllipsis = regexp.MustCompile(`(?:\s*(?:\.{2,}|…))+\s*$`)
)

// CleanReply deja el texto final del modelo listo para responder y persistir:
// recorta, colapsa espacios repetidos y quita puntos suspensivos colgando al final.
func CleanReply(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reHorizontalSpace.ReplaceAllString(s, " ")
	s = reSpaceAroundBreak.ReplaceAllString(s, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	s = reTrailingEllipsis.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
