package inbound

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
	"github.com/microcosm-cc/bluemonday"
	htmlcharset "golang.org/x/net/html/charset"

	"github.com/commdesk-io/commdesk/internal/comm"
)

func init() {
	gomessage.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return htmlcharset.NewReaderLabel(charset, input)
	}
}

var htmlStripPolicy = bluemonday.StrictPolicy()

const maxBodyBytes = 128 * 1024

// Normalize flattens a raw RFC 822 message into the plain-text form the
// reply parser consumes: a To header line, a blank separator, then the
// preferred text body. Multipart messages prefer text/plain; HTML-only
// messages are stripped to text.
func Normalize(raw []byte) (string, error) {
	reader, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", &comm.MalformedEmailError{Reason: fmt.Sprintf("unparseable message: %v", err)}
	}

	to := reader.Header.Get("To")
	if list, err := reader.Header.AddressList("To"); err == nil && len(list) > 0 {
		addr := list[0]
		if addr.Name != "" {
			to = fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
		} else {
			to = fmt.Sprintf("<%s>", addr.Address)
		}
	}

	body, err := readBody(reader)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("To: ")
	sb.WriteString(to)
	sb.WriteString("\n\n")
	sb.WriteString(body)
	return sb.String(), nil
}

// readBody walks the inline parts and returns the first text/plain body,
// falling back to a text rendering of the first text/html body.
func readBody(reader *gomail.Reader) (string, error) {
	var plain, htmlBody string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &comm.MalformedEmailError{Reason: fmt.Sprintf("read part: %v", err)}
		}
		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(io.LimitReader(part.Body, maxBodyBytes))
		if err != nil {
			return "", &comm.MalformedEmailError{Reason: fmt.Sprintf("read part body: %v", err)}
		}
		switch {
		case strings.HasPrefix(mediaType, "text/plain"):
			if plain == "" {
				plain = string(content)
			}
		case strings.HasPrefix(mediaType, "text/html"):
			if htmlBody == "" {
				htmlBody = string(content)
			}
		}
	}
	if plain != "" {
		return plain, nil
	}
	if htmlBody != "" {
		return htmlToText(htmlBody), nil
	}
	return "", &comm.MalformedEmailError{Reason: "message has no text body"}
}

// htmlToText strips every tag and unescapes entities, leaving just the
// textual content of an HTML-only message.
func htmlToText(s string) string {
	stripped := htmlStripPolicy.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
