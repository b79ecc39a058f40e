package inbound

import (
	"context"
	"errors"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/commdesk-io/commdesk/internal/comm"
	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// Ingestion outcome labels reported to Prometheus.
const (
	outcomeAccepted  = "accepted"
	outcomeMalformed = "malformed"
	outcomeInvalid   = "invalid_token"
	outcomeRevoked   = "permission_revoked"
	outcomeError     = "error"
)

type pipelineMetrics struct {
	ingested *prometheus.CounterVec
}

func newPipelineMetrics(reg prometheus.Registerer) *pipelineMetrics {
	return &pipelineMetrics{
		ingested: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "commdesk_inbound_replies_total",
			Help: "Inbound reply emails processed, by outcome.",
		}, []string{"outcome"}),
	}
}

// Pipeline turns raw inbound reply emails into notes. Each message is
// independent; failures never halt a batch.
type Pipeline struct {
	parser  *ReplyParser
	tokens  *comm.TokenService
	perms   *comm.PermissionService
	threads repository.ThreadRepository
	users   repository.UserRepository
	notes   repository.NoteRepository
	logger  *log.Logger
	metrics *pipelineMetrics
}

// PipelineOption customizes Pipeline.
type PipelineOption func(*Pipeline)

// NewPipeline creates a new reply ingestion pipeline.
func NewPipeline(
	tokens *comm.TokenService,
	perms *comm.PermissionService,
	threads repository.ThreadRepository,
	users repository.UserRepository,
	notes repository.NoteRepository,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		parser:  NewReplyParser(),
		tokens:  tokens,
		perms:   perms,
		threads: threads,
		users:   users,
		notes:   notes,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.metrics == nil {
		p.metrics = newPipelineMetrics(prometheus.DefaultRegisterer)
	}
	return p
}

// WithPipelineLogger overrides the logger used for diagnostics.
func WithPipelineLogger(logger *log.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPipelineRegisterer overrides where ingestion metrics register,
// primarily for tests.
func WithPipelineRegisterer(reg prometheus.Registerer) PipelineOption {
	return func(p *Pipeline) {
		if reg != nil {
			p.metrics = newPipelineMetrics(reg)
		}
	}
}

// IngestMessage normalizes a raw RFC 822 message and ingests it.
func (p *Pipeline) IngestMessage(ctx context.Context, raw []byte) (*models.Note, error) {
	text, err := Normalize(raw)
	if err != nil {
		p.count(outcomeMalformed)
		return nil, err
	}
	return p.Ingest(ctx, text)
}

// Ingest authenticates the reply via its token, re-validates the token
// holder's read access, and appends the reply as a no-action note. A token
// whose holder lost access is deleted before the error returns, so a
// redelivered copy of the same message cannot retry the check.
func (p *Pipeline) Ingest(ctx context.Context, raw string) (*models.Note, error) {
	parsed, err := p.parser.Parse(raw)
	if err != nil {
		p.count(outcomeMalformed)
		return nil, err
	}

	tok, err := p.tokens.LookupByIdentifier(ctx, parsed.UUID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		p.count(outcomeInvalid)
		return nil, &comm.InvalidTokenError{UUID: parsed.UUID}
	}
	if err != nil {
		p.count(outcomeError)
		return nil, err
	}

	thread, err := p.threads.GetThread(ctx, tok.ThreadID)
	if err != nil {
		p.count(outcomeError)
		return nil, err
	}
	user, err := p.users.GetUser(ctx, tok.UserID)
	if err != nil {
		p.count(outcomeError)
		return nil, err
	}

	allowed, err := p.perms.CanRead(ctx, thread, user)
	if err != nil {
		p.count(outcomeError)
		return nil, err
	}
	if !allowed {
		if err := p.tokens.Invalidate(ctx, tok); err != nil {
			p.logger.Printf("burn token %s after revoked permission: %v", tok.UUID, err)
		}
		p.count(outcomeRevoked)
		return nil, &comm.PermissionRevokedError{ThreadID: tok.ThreadID, UserID: tok.UserID}
	}

	note := &models.Note{
		ThreadID: tok.ThreadID,
		AuthorID: tok.UserID,
		Type:     models.NoteNoAction,
		Body:     parsed.Body,
	}
	if err := p.notes.CreateNote(ctx, note); err != nil {
		p.count(outcomeError)
		return nil, err
	}
	if err := p.tokens.MarkUsed(ctx, tok); err != nil {
		// The note exists; a missed use-count tick is not worth failing over.
		p.logger.Printf("record use of token %s: %v", tok.UUID, err)
	}

	p.count(outcomeAccepted)
	p.logger.Printf("ingested reply from user %d as note %d on thread %d", tok.UserID, note.ID, tok.ThreadID)
	return note, nil
}

func (p *Pipeline) count(outcome string) {
	if p.metrics != nil {
		p.metrics.ingested.WithLabelValues(outcome).Inc()
	}
}
