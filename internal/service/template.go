// internal/service/template.go
package service

import (
	"strings"

	"dario.cat/mergo"

	appErrors "github.com/Tzelon/thunder-mail/internal/errors"
)

// MergeTemplateData layers destination variables over the message-level
// ones; destination values win on key collision.
func MergeTemplateData(global, destination map[string]string) (map[string]string, error) {
	merged := map[string]string{}
	if err := mergo.Merge(&merged, global); err != nil {
		return nil, err
	}
	if err := mergo.Merge(&merged, destination, mergo.WithOverride); err != nil {
		return nil, err
	}
	return merged, nil
}

// RenderTemplate substitutes {{var}} tokens from data. A missing variable
// renders as the empty string; an unterminated token fails the whole
// render with a TemplateSyntaxError.
func RenderTemplate(source string, data map[string]string) (string, error) {
	var out strings.Builder
	rest := source
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:open])

		end := strings.Index(rest[open:], "}}")
		if end < 0 {
			return "", &appErrors.TemplateSyntaxError{
				Detail: "unterminated substitution token " + snippet(rest[open:]),
			}
		}

		key := strings.TrimSpace(rest[open+2 : open+end])
		out.WriteString(data[key])
		rest = rest[open+end+2:]
	}
}

func snippet(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}
