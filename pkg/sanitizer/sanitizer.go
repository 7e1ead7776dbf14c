package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	reID    = regexp.MustCompile(`^[0-9a-z\-]+$`)
)

func trimAndLower(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return s
}

func SanitizeEmail(input string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string {
			if !reEmail.MatchString(s) {
				return ""
			}
			return s
		},
	}
	return p.Apply(input)
}

// SanitizeID lowercases an identifier and drops anything that could not be a UUID or ObjectID.
func SanitizeID(input string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string {
			if !reID.MatchString(s) {
				return ""
			}
			return s
		},
	}
	return p.Apply(input)
}

// NormalizeIDs sanitizes every identifier, dropping invalid ones and later duplicates.
func NormalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = SanitizeID(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
