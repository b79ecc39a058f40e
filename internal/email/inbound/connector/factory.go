package connector

import (
	"fmt"
	"sort"
	"strings"
)

// FactoryOption registers fetchers while the factory is being built.
// Wiring happens once at startup, so the map behind the factory is never
// mutated afterwards and needs no locking.
type FactoryOption func(map[string]Fetcher)

type typeRegistry struct {
	fetchers map[string]Fetcher
}

// NewFactory builds a factory from the given registrations.
func NewFactory(opts ...FactoryOption) Factory {
	fetchers := make(map[string]Fetcher)
	for _, opt := range opts {
		if opt != nil {
			opt(fetchers)
		}
	}
	return &typeRegistry{fetchers: fetchers}
}

// DefaultFactory covers the mailbox types the poll task understands.
func DefaultFactory() Factory {
	return NewFactory(
		WithFetcher(NewPOP3Fetcher(), "pop3", "pop3s"),
		WithFetcher(NewIMAPFetcher(), "imap", "imaps"),
	)
}

// WithFetcher registers a fetcher under each of the given mailbox types.
func WithFetcher(fetcher Fetcher, mailboxTypes ...string) FactoryOption {
	return func(fetchers map[string]Fetcher) {
		if fetcher == nil {
			return
		}
		for _, t := range mailboxTypes {
			if key := normalizeType(t); key != "" {
				fetchers[key] = fetcher
			}
		}
	}
}

func (r *typeRegistry) FetcherFor(mailbox Mailbox) (Fetcher, error) {
	if fetcher, ok := r.fetchers[normalizeType(mailbox.Type)]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("mailbox type %q is not supported (supported: %s)",
		mailbox.Type, strings.Join(r.supportedTypes(), ", "))
}

func (r *typeRegistry) supportedTypes() []string {
	types := make([]string, 0, len(r.fetchers))
	for t := range r.fetchers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func normalizeType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
