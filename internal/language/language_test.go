package language

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"es", "es"},
		{"ES", "es"},
		{"pt-br", "pt-BR"},
		{"pt_BR", "pt-BR"},
		{" en-us ", "en-US"},
		{"spa", "es"},
		{"fre", "fr"},
		{"ger", "de"},
		{"Portuguese", "pt"},
		{"japanese", "ja"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.input)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "not a tag!", "und"} {
		if _, err := Normalize(input); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidTag", input, err)
		}
	}
}

func TestBase(t *testing.T) {
	tests := map[string]string{
		"pt-BR":   "pt",
		"en":      "en",
		"es-419":  "es",
		"spanish": "es",
		"":        "",
	}
	for input, want := range tests {
		if got := Base(input); got != want {
			t.Errorf("Base(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("es"); got != "Spanish" {
		t.Errorf("DisplayName(es) = %q", got)
	}
	if got := DisplayName(""); got != "Unknown" {
		t.Errorf("DisplayName(\"\") = %q", got)
	}
	if got := DisplayName("!!"); got != "!!" {
		t.Errorf("DisplayName(!!) = %q", got)
	}
}
