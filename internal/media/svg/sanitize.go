// Package svg strips active content from SVG result files before they are uploaded or
// archived.
package svg

import (
	"bytes"
	"errors"
	"regexp"
)

var ErrNotSVG = errors.New("not an svg document")

var (
	scriptTag     = regexp.MustCompile(`(?is)<\s*script\b.*?<\s*/\s*script\s*>`)
	selfScriptTag = regexp.MustCompile(`(?is)<\s*script\b[^>]*/\s*>`)
	foreignObject = regexp.MustCompile(`(?is)<\s*foreignObject\b.*?<\s*/\s*foreignObject\s*>`)
	eventAttr     = regexp.MustCompile(`(?is)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	scriptHref    = regexp.MustCompile(`(?is)\s+(xlink:)?href\s*=\s*("\s*javascript:[^"]*"|'\s*javascript:[^']*')`)
)

func Sanitize(input []byte) ([]byte, error) {
	if !bytes.Contains(bytes.ToLower(input), []byte("<svg")) {
		return nil, ErrNotSVG
	}

	clean := scriptTag.ReplaceAll(input, nil)
	clean = selfScriptTag.ReplaceAll(clean, nil)
	clean = foreignObject.ReplaceAll(clean, nil)
	clean = eventAttr.ReplaceAll(clean, nil)
	clean = scriptHref.ReplaceAll(clean, nil)
	return clean, nil
}
