package inbound

import (
	"strings"

	"github.com/commdesk-io/commdesk/internal/comm"
)

// AddressPrefix marks the local part of a tokenized reply address:
// reply+<token>@<domain>.
const AddressPrefix = "reply+"

// ParsedReply is the outcome of parsing one inbound reply email.
type ParsedReply struct {
	// UUID is the token identifier extracted from the To address.
	UUID string
	// Body is everything after the header separator, quoted content
	// already stripped.
	Body string
}

// ReplyParser extracts the reply-token identifier and the visible body
// from raw email text.
type ReplyParser struct{}

// NewReplyParser creates a new reply parser
func NewReplyParser() *ReplyParser {
	return &ReplyParser{}
}

// Parse strips quoted-reply content, splits headers from body at the first
// blank line, and pulls the token identifier out of the To address. Missing
// structure fails with comm.MalformedEmailError.
func (p *ReplyParser) Parse(raw string) (*ParsedReply, error) {
	visible := VisibleReply(raw)

	headerBlock, body, found := strings.Cut(visible, "\n\n")
	if !found {
		return nil, &comm.MalformedEmailError{Reason: "no blank line separating headers from body"}
	}

	headers := parseHeaders(headerBlock)
	to, ok := headers["to"]
	if !ok {
		return nil, &comm.MalformedEmailError{Reason: "missing To header"}
	}

	uuid, err := tokenFromAddress(to)
	if err != nil {
		return nil, err
	}
	return &ParsedReply{UUID: uuid, Body: body}, nil
}

// parseHeaders builds a case-insensitive header map, splitting each line at
// its first colon. Folded continuation lines extend the previous value.
func parseHeaders(block string) map[string]string {
	headers := make(map[string]string)
	var last string
	for _, line := range strings.Split(block, "\n") {
		if last != "" && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			headers[last] += " " + strings.TrimSpace(line)
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		last = strings.ToLower(strings.TrimSpace(key))
		headers[last] = strings.TrimSpace(value)
	}
	return headers
}

// tokenFromAddress pulls the token identifier out of a To header value
// shaped like "Display Name <reply+UUID@domain>".
func tokenFromAddress(to string) (string, error) {
	open := strings.Index(to, "<")
	if open < 0 {
		return "", &comm.MalformedEmailError{Reason: "To header has no angle-bracket address"}
	}
	closing := strings.Index(to[open:], ">")
	if closing < 0 {
		return "", &comm.MalformedEmailError{Reason: "To header has an unterminated address"}
	}
	addr := to[open+1 : open+closing]

	if !strings.HasPrefix(addr, AddressPrefix) {
		return "", &comm.MalformedEmailError{Reason: "To address is not a reply address"}
	}
	rest := addr[len(AddressPrefix):]
	uuid, _, found := strings.Cut(rest, "@")
	if !found || uuid == "" {
		return "", &comm.MalformedEmailError{Reason: "reply address carries no token identifier"}
	}
	return uuid, nil
}
