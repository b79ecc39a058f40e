package tasks

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/commdesk-io/commdesk/internal/comm"
	"github.com/commdesk-io/commdesk/internal/config"
	"github.com/commdesk-io/commdesk/internal/email/inbound"
	"github.com/commdesk-io/commdesk/internal/runner"
)

// MaildirScanTask ingests reply emails dropped as files into a local
// directory, for deployments where the MTA writes to disk instead of a
// network mailbox. Successfully ingested and permanently rejected files
// are removed; transient failures leave the file for the next scan.
type MaildirScanTask struct {
	cfg      *config.MailboxConfig
	pipeline *inbound.Pipeline
	logger   *log.Logger
}

// NewMaildirScanTask creates a new maildir scan task
func NewMaildirScanTask(cfg *config.MailboxConfig, pipeline *inbound.Pipeline) runner.Task {
	return &MaildirScanTask{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   log.New(log.Writer(), "[MAILDIR-SCAN] ", log.LstdFlags),
	}
}

// Name returns the task name
func (t *MaildirScanTask) Name() string {
	return "maildir-scan"
}

// Schedule returns the cron schedule (every minute)
func (t *MaildirScanTask) Schedule() string {
	return "30 * * * * *"
}

// Timeout returns the task timeout (2 minutes)
func (t *MaildirScanTask) Timeout() time.Duration {
	return 2 * time.Minute
}

// Run scans the drop directory and ingests every regular file in it.
func (t *MaildirScanTask) Run(ctx context.Context) error {
	if t.cfg.MaildirPath == "" {
		return nil
	}

	entries, err := os.ReadDir(t.cfg.MaildirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(t.cfg.MaildirPath, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			t.logger.Printf("Read %s: %v", entry.Name(), err)
			continue
		}

		note, err := t.pipeline.IngestMessage(ctx, raw)
		switch {
		case err == nil:
			t.logger.Printf("File %s ingested as note %d", entry.Name(), note.ID)
		case permanentIngestFailure(err):
			t.logger.Printf("File %s rejected: %v", entry.Name(), err)
		default:
			// Transient failure; keep the file for the next scan.
			t.logger.Printf("File %s deferred: %v", entry.Name(), err)
			continue
		}

		if err := os.Remove(path); err != nil {
			t.logger.Printf("Remove %s: %v", entry.Name(), err)
		}
	}
	return nil
}

// permanentIngestFailure reports whether retrying the same message could
// ever succeed.
func permanentIngestFailure(err error) bool {
	var malformed *comm.MalformedEmailError
	var invalid *comm.InvalidTokenError
	var revoked *comm.PermissionRevokedError
	return errors.As(err, &malformed) || errors.As(err, &invalid) || errors.As(err, &revoked)
}
