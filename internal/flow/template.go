package flow

import "regexp"

// placeholderPattern matches {{name}} placeholders in message templates.
var placeholderPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Render substitutes {{name}} placeholders in template from vars. Unknown
// placeholders are left byte-identical; every occurrence of a known
// placeholder is substituted with the same value.
func Render(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
