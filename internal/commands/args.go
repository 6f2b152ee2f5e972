package commands

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/vic-nas/bouncer/internal/model"
)

// Tokenize splits a prefix-stripped command line into its name and
// arguments. Double quotes group a multi-word argument; quotes are not
// nested and an unterminated quote runs to the end of the line.
func Tokenize(line string) (name string, args []string) {
	var tokens []string
	var b strings.Builder
	inQuote := false

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for _, r := range line {
		switch {
		case r == '"':
			if inQuote {
				// Closing quote ends the token even if empty.
				tokens = append(tokens, b.String())
				b.Reset()
				inQuote = false
			} else {
				flush()
				inQuote = true
			}
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()

	if len(tokens) == 0 {
		return "", nil
	}
	if len(tokens) == 1 {
		return strings.ToLower(tokens[0]), nil
	}
	return strings.ToLower(tokens[0]), tokens[1:]
}

// canonical normalizes a role or channel name for comparison: NFC
// normalization plus case folding, so visually identical names entered
// through different input methods still match.
func canonical(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// roleByName resolves a role name against the live snapshot, falling
// back to the stored role cache. Returns 0 when the name is unknown.
func roleByName(names map[int64]string, snap *model.Snapshot, name string) int64 {
	want := canonical(name)
	if want == "" {
		return 0
	}
	if snap != nil {
		for _, r := range snap.Roles {
			if canonical(r.Name) == want {
				return r.ID
			}
		}
	}
	for id, n := range names {
		if canonical(n) == want {
			return id
		}
	}
	return 0
}
