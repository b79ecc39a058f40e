package comm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// TokenService manages reply tokens: opaque per-(thread, user) credentials
// embedded in outbound reply-to addresses.
type TokenService struct {
	tokens repository.TokenRepository
	logger *log.Logger
	now    func() time.Time
}

// TokenServiceOption customizes TokenService.
type TokenServiceOption func(*TokenService)

// NewTokenService creates a new token service
func NewTokenService(tokens repository.TokenRepository, opts ...TokenServiceOption) *TokenService {
	s := &TokenService{
		tokens: tokens,
		logger: log.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithTokenLogger overrides the logger used for diagnostics.
func WithTokenLogger(logger *log.Logger) TokenServiceOption {
	return func(s *TokenService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTokenClock overrides the wall clock, primarily for tests.
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// GetOrCreateToken returns the live token for the (thread, user) pair.
// Re-requesting a token for a pair that already has one resets its use
// count to zero rather than creating a duplicate.
func (s *TokenService) GetOrCreateToken(ctx context.Context, threadID, userID uint) (*models.ReplyToken, bool, error) {
	candidate := strings.ReplaceAll(uuid.NewString(), "-", "")
	tok, created, err := s.tokens.GetOrCreate(ctx, threadID, userID, candidate)
	if err != nil {
		return nil, false, fmt.Errorf("get or create reply token: %w", err)
	}
	s.logf("issued token %s for user %d on thread %d (created=%t)", tok.UUID, userID, threadID, created)
	return tok, created, nil
}

// LookupByIdentifier returns the usable token matching the identifier.
// Expired or used-up tokens are reported as repository.ErrTokenNotFound,
// the same as identifiers that were never issued.
func (s *TokenService) LookupByIdentifier(ctx context.Context, identifier string) (*models.ReplyToken, error) {
	tok, err := s.tokens.GetByUUID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !tok.Usable(s.now()) {
		s.logf("token %s exists but is expired or used up", identifier)
		return nil, repository.ErrTokenNotFound
	}
	return tok, nil
}

// MarkUsed records one authentication against the token's use budget.
func (s *TokenService) MarkUsed(ctx context.Context, tok *models.ReplyToken) error {
	return s.tokens.IncrementUse(ctx, tok.ID)
}

// Invalidate permanently deletes the token. Later lookups for its
// identifier report not-found.
func (s *TokenService) Invalidate(ctx context.Context, tok *models.ReplyToken) error {
	if err := s.tokens.Delete(ctx, tok.ID); err != nil {
		return fmt.Errorf("invalidate reply token %s: %w", tok.UUID, err)
	}
	s.logf("invalidated token %s for user %d on thread %d", tok.UUID, tok.UserID, tok.ThreadID)
	return nil
}

func (s *TokenService) logf(format string, args ...any) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
