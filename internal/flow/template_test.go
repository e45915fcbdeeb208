package flow

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	vars := map[string]string{"name": "Ana", "choice": "B"}

	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"single substitution", "Oi {{name}}!", "Oi Ana!"},
		{"multiple variables", "{{name}} escolheu {{choice}}", "Ana escolheu B"},
		{"repeated placeholder", "{{name}} e {{name}}", "Ana e Ana"},
		{"unknown placeholder untouched", "Oi {{sobrenome}}!", "Oi {{sobrenome}}!"},
		{"mixed known and unknown", "{{name}} {{x}}", "Ana {{x}}"},
		{"no placeholders", "sem variáveis", "sem variáveis"},
		{"empty template", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.template, vars); got != tc.want {
				t.Errorf("Render(%q) = %q, want %q", tc.template, got, tc.want)
			}
		})
	}
}

func TestRenderNeverLeaksDelimiters(t *testing.T) {
	got := Render("Oi {{name}}, escolha {{choice}}.", map[string]string{"name": "Ana", "choice": "B"})
	if strings.Contains(got, "{{") || strings.Contains(got, "}}") {
		t.Errorf("rendered output leaked delimiters: %q", got)
	}
}

func TestRenderNilVars(t *testing.T) {
	if got := Render("Oi {{name}}!", nil); got != "Oi {{name}}!" {
		t.Errorf("Render with nil vars = %q, want placeholder untouched", got)
	}
}
