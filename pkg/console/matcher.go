package console

import (
	"bytes"
	"fmt"
	"regexp"
)

// Matcher finds the end of a wait in buffered console output
type Matcher interface {
	// Match returns the bounds of the first match in b, start is -1 if there is none
	Match(b []byte) (start, end int)
	String() string
}

type literal []byte

// Literal matches s byte for byte, control sequences included
func Literal(s string) Matcher {
	return literal(s)
}

func (l literal) Match(b []byte) (int, int) {
	i := bytes.Index(b, l)
	if i < 0 {
		return -1, -1
	}
	return i, i + len(l)
}

func (l literal) String() string {
	return fmt.Sprintf("literal %q", string(l))
}

type pattern struct {
	re *regexp.Regexp
}

// Pattern matches a regular expression against the raw output
func Pattern(expr string) (Matcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return pattern{re: re}, nil
}

// MustPattern is Pattern for expressions known to be valid
func MustPattern(expr string) Matcher {
	m, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return m
}

func (p pattern) Match(b []byte) (int, int) {
	loc := p.re.FindIndex(b)
	if loc == nil {
		return -1, -1
	}
	return loc[0], loc[1]
}

func (p pattern) String() string {
	return fmt.Sprintf("pattern %q", p.re.String())
}
