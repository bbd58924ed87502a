package persona

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	placeholderPersonaName     = "{{PERSONA_NAME}}"
	placeholderPersonaNameList = "{{PERSONA_NAME_LIST}}"
)

var placeholderToken = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// RenderInstructions substitutes the enumerated placeholders in a fixed order:
// the persona's own name and any injectable values first (these are mutually
// order-independent), then the persona name list last so injected values can
// never introduce a second expansion pass. Injectable keys match placeholders
// case-insensitively: configuration loaders lowercase map keys while authored
// templates use uppercase tokens. The substitution is idempotent.
func RenderInstructions(tmpl, personaName string, injectables map[string]any, personas []NameDescription) string {
	out := strings.ReplaceAll(tmpl, placeholderPersonaName, personaName)

	if len(injectables) > 0 {
		lookup := make(map[string]any, len(injectables))
		for k, v := range injectables {
			lookup[strings.ToLower(k)] = v
		}
		out = placeholderToken.ReplaceAllStringFunc(out, func(token string) string {
			key := strings.ToLower(token[2 : len(token)-2])
			if key == "persona_name_list" {
				return token
			}
			if v, ok := lookup[key]; ok {
				return stringify(v)
			}
			return token
		})
	}

	if strings.Contains(out, placeholderPersonaNameList) {
		out = strings.ReplaceAll(out, placeholderPersonaNameList, renderNameList(personas))
	}
	return out
}

func renderNameList(personas []NameDescription) string {
	if len(personas) == 0 {
		return "[]"
	}
	payload, err := json.Marshal(personas)
	if err != nil {
		return "[]"
	}
	return string(payload)
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
