package script

import (
	"strings"
	"testing"
)

func TestWrapIsOneLine(t *testing.T) {
	expressions := []string{
		"return beacons()",
		"return 1 + 1",
		"",
		"return\t\"tab\"",
		"  \t  return \"joined\"",
		"return [new ArrayList];\n\treturn 2",
		"        return 8",
		"     return 5",
		"\r\nreturn listeners_local()\r\n",
	}

	for _, e := range expressions {
		got := Flatten(Wrap(e))
		if strings.ContainsAny(got, "\n\t") {
			t.Errorf("Wrap(%q) contains a newline or tab: %q", e, got)
		}
		if strings.Contains(got, "    ") {
			t.Errorf("Wrap(%q) contains a four space run: %q", e, got)
		}
	}
}

func TestWrapEmbedsExpression(t *testing.T) {
	got := Wrap("return beacons()")

	if !strings.HasPrefix(got, "sub callback {return beacons();}") {
		t.Errorf("Unexpected callback definition: %q", got)
	}
	for _, part := range []string{
		"[$oos writeObject: callback()];",
		"[Base64 getEncoder];",
		"println([$encoder encodeToString: [$baos toByteArray]]);",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("Wrapped script is missing %q: %q", part, got)
		}
	}
	if strings.Contains(got, expressionToken) {
		t.Errorf("Placeholder left in wrapped script: %q", got)
	}
	if strings.Count(got, "println(") != 1 {
		t.Errorf("Wrapped script must print exactly one line: %q", got)
	}
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"newlines", "a\nb\n", "ab"},
		{"crlf", "a\r\nb", "ab"},
		{"four spaces", "a    b", "ab"},
		{"five spaces", "a     b", "a b"},
		{"two spaces kept", "a  b", "a  b"},
		{"tabs", "\ta\t\tb", "ab"},
		{"spaces joined by tab removal", "a  \t  b", "ab"},
		{"spaces joined by newline removal", "a  \n  b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flatten(tt.input); got != tt.expected {
				t.Errorf("Flatten(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", `"plain"`},
		{`C:\Temp\a.exe`, `"C:\\Temp\\a.exe"`},
		{`say "hi"`, `"say \"hi\""`},
		{"two\nlines", `"two\nlines"`},
		{"$handle", `"\$handle"`},
	}

	for _, tt := range tests {
		if got := Quote(tt.input); got != tt.expected {
			t.Errorf("Quote(%q) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}
