package inbound

import (
	"regexp"
	"strings"
)

var (
	quotedLinePattern  = regexp.MustCompile(`^ *>`)
	quoteHeaderPattern = regexp.MustCompile(`^On\s.+wrote:\s*$`)
	// Quote headers that mail clients wrapped onto two lines.
	wrappedQuoteHeader = regexp.MustCompile(`(?m)^On\s[^\n]*\n[^>\n]*wrote:\s*$`)
	signaturePattern   = regexp.MustCompile(`^(--|__|-\w)|^Sent from my (\w+ *){1,3}$`)
)

// fragment is a run of consecutive lines sharing quoted status. Trailing
// quoted, signature, and empty fragments are hidden; everything above the
// first visible fragment stays visible.
type fragment struct {
	lines     []string
	quoted    bool
	signature bool
	hidden    bool
}

func (f *fragment) empty() bool {
	return strings.TrimSpace(strings.Join(f.lines, "\n")) == ""
}

// VisibleReply strips quoted prior-message content and trailing signatures
// from reply text, keeping only what the sender actually typed.
func VisibleReply(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = wrappedQuoteHeader.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ReplaceAll(m, "\n", " ")
	})

	lines := strings.Split(text, "\n")
	var frags []*fragment
	var cur *fragment
	finish := func() {
		if cur != nil {
			frags = append(frags, cur)
			cur = nil
		}
	}

	// Scan bottom-up so trailing quotes and signatures group before the
	// first visible fragment is known.
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		quoted := quotedLinePattern.MatchString(line)

		if cur != nil && strings.TrimSpace(line) == "" {
			if last := cur.lines[0]; signaturePattern.MatchString(strings.TrimSpace(last)) {
				cur.signature = true
				finish()
			}
		}

		switch {
		case cur == nil:
			cur = &fragment{quoted: quoted, lines: []string{line}}
		case cur.quoted == quoted,
			cur.quoted && (quoteHeaderPattern.MatchString(line) || strings.TrimSpace(line) == ""):
			cur.lines = append([]string{line}, cur.lines...)
		default:
			finish()
			cur = &fragment{quoted: quoted, lines: []string{line}}
		}
	}
	finish()

	// frags is bottom-to-top; hide trailing junk until something visible.
	foundVisible := false
	for _, f := range frags {
		if !foundVisible && (f.quoted || f.signature || f.empty()) {
			f.hidden = true
		} else {
			foundVisible = true
		}
	}

	var out []string
	for i := len(frags) - 1; i >= 0; i-- {
		if frags[i].hidden {
			continue
		}
		out = append(out, frags[i].lines...)
	}
	return strings.TrimRight(strings.Join(out, "\n"), " \t\n")
}
