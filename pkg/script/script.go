package script

import "strings"

const expressionToken = "{{EXPRESSION}}"

// The template is indented for readability only, Flatten removes it
const wrapTemplate = `
	sub callback {
		{{EXPRESSION}};
	}

	import java.io.*;
	import java.util.*;
	$baos = [new ByteArrayOutputStream];
	$oos = [new ObjectOutputStream: $baos];
	[$oos writeObject: callback()];
	[$oos close];
	$encoder = [Base64 getEncoder];
	println([$encoder encodeToString: [$baos toByteArray]]);
`

// Wrap returns a one line script that evaluates expression, serializes the
// result and prints it as a single base64 line. expression is not parsed.
func Wrap(expression string) string {
	return Flatten(strings.Replace(wrapTemplate, expressionToken, expression, 1))
}

// Flatten makes a multi line script fit on one console line by removing
// newlines, then runs of four spaces, then tabs. Removing a tab can join
// spaces into a new run, so the last two steps repeat until none is left.
func Flatten(script string) string {
	oneLine := strings.ReplaceAll(script, "\n", "")
	oneLine = strings.ReplaceAll(oneLine, "\r", "")
	for strings.Contains(oneLine, "    ") || strings.Contains(oneLine, "\t") {
		oneLine = strings.ReplaceAll(oneLine, "    ", "")
		oneLine = strings.ReplaceAll(oneLine, "\t", "")
	}
	return oneLine
}

// Quote returns s as a double quoted Sleep string literal
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\', '"', '$':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
