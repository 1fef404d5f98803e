package caption

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Key
	}{
		{"simple", "Hello", "hello"},
		{"trims", "  Hello world  ", "hello world"},
		{"collapses whitespace", "Hello\t \nworld", "hello world"},
		{"lowercases", "HELLO World", "hello world"},
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
		{"unicode", "Привет МИР", "привет мир"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	for _, in := range []string{"a  b", "Mixed\r\nLines", "  x "} {
		if Normalize(in) != Normalize(in) {
			t.Errorf("Normalize(%q) not deterministic", in)
		}
	}
}

func TestNormalizeTranslation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hei maailma", "Hei maailma"},
		{"  padded  ", "padded"},
		{"two\nlines", "two lines"},
		{"crlf\r\nlines", "crlf lines"},
		{"\n\n", ""},
	}

	for _, tt := range tests {
		if got := normalizeTranslation(tt.in); got != tt.want {
			t.Errorf("normalizeTranslation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
