package instance

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/juju/errors"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// RenderLoginCommand substitutes the {key} placeholders of a login template
// with values from options. A nil value renders as an empty string.
func RenderLoginCommand(template string, options map[string]any) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := options[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", errors.WithType(
			fmt.Errorf("login options have no value for: %s", strings.Join(missing, ", ")),
			errors.NotValid,
		)
	}
	return out, nil
}
