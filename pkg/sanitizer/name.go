package sanitizer

import (
	"strings"
	"unicode"
)

// MaxNameLength bounds the guest name snapshot stored on a reservation request, in runes.
const MaxNameLength = 100

// NormalizeName collapses runs of whitespace to one space, drops control characters and
// truncates the result to MaxNameLength runes.
func NormalizeName(name string) string {
	var b strings.Builder
	n := 0
	pendingSpace := false

	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if pendingSpace {
			if n+1 >= MaxNameLength {
				break
			}
			b.WriteRune(' ')
			n++
			pendingSpace = false
		}
		if n == MaxNameLength {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
