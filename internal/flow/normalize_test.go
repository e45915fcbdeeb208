package flow

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase passthrough", "oi", "oi"},
		{"strips accents", "Olá", "ola"},
		{"strips cedilla accent forms", "Atenção", "atencao"},
		{"trims whitespace", "  bom dia  ", "bom dia"},
		{"folds case", "BOA TARDE", "boa tarde"},
		{"mixed", "  É Nóis  ", "e nois"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Olá", "  Ção  ", "José Maria", "açaí", "já normalizado", "123 áéíóú"}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}
