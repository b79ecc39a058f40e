package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/commdesk-io/commdesk/internal/cache"
	"github.com/commdesk-io/commdesk/internal/comm"
	"github.com/commdesk-io/commdesk/internal/config"
	"github.com/commdesk-io/commdesk/internal/database"
	"github.com/commdesk-io/commdesk/internal/email/inbound"
	"github.com/commdesk-io/commdesk/internal/email/inbound/connector"
	"github.com/commdesk-io/commdesk/internal/email/outbound"
	"github.com/commdesk-io/commdesk/internal/mailqueue"
	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
	"github.com/commdesk-io/commdesk/internal/runner"
	"github.com/commdesk-io/commdesk/internal/runner/tasks"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPathFlag string

var rootCmd = &cobra.Command{
	Use:   "commdesk",
	Short: "Marketplace review communication service",
	Long: `CommDesk threads reviewer and developer conversation onto app review
threads and bridges it over email: outbound notes carry tokenized
reply addresses, and inbound replies post back as notes.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background workers (mailbox poll, maildir scan, mail queue)",
	RunE:  runWorkers,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.db.Close()
		if err := database.EnsureSchema(cmd.Context(), app.db); err != nil {
			return err
		}
		fmt.Println("Schema is up to date")
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest one raw reply email from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngest,
}

var notifyCmd = &cobra.Command{
	Use:   "notify <note-id>",
	Short: "Queue outbound notifications for an existing note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotify,
}

var (
	postAuthorFlag string
	postTypeFlag   string
	postBodyFlag   string
)

var postCmd = &cobra.Command{
	Use:   "post <thread-id>",
	Short: "Post a note to a thread and notify its recipients",
	Args:  cobra.ExactArgs(1),
	RunE:  runPost,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "./configs", "Directory holding default.yaml")
	postCmd.Flags().StringVar(&postAuthorFlag, "author", "", "Email address of the posting user")
	postCmd.Flags().StringVar(&postTypeFlag, "type", "reviewer-comment", "Note type name")
	postCmd.Flags().StringVar(&postBodyFlag, "body", "", "Note body (read from stdin when omitted)")
	postCmd.MarkFlagRequired("author")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(postCmd)
}

// app bundles the wired services every subcommand draws from.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	pipeline *inbound.Pipeline
	notifier *outbound.Notifier
	posting  *comm.NoteService
	notes    repository.NoteRepository
	users    repository.UserRepository
}

func openApp() (*app, error) {
	if err := config.Load(configPathFlag); err != nil {
		return nil, err
	}
	cfg := config.Get()

	db, err := database.Connect(database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(db)
	threads := repository.NewThreadRepository(db)
	notes := repository.NewNoteRepository(db)
	apps := repository.NewAppRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	var groups repository.GroupRepository = repository.NewGroupRepository(db)
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			db.Close()
			return nil, err
		}
		groups = cache.NewGroupCache(groups, client)
	}

	tokens := comm.NewTokenService(tokenRepo)
	perms := comm.NewPermissionService(threads, notes, apps, groups)
	recipients := comm.NewRecipientService(threads, apps, groups, users, tokens, nil)

	queue := mailqueue.NewRepository(db)
	notifier := outbound.NewNotifier(
		recipients, threads, apps, users, queue,
		cfg.Email.From, cfg.Comm.ReplyDomain,
	)

	pipeline := inbound.NewPipeline(tokens, perms, threads, users, notes)
	posting := comm.NewNoteService(threads, notes, perms, notifier, nil)

	return &app{
		cfg:      cfg,
		db:       db,
		pipeline: pipeline,
		notifier: notifier,
		posting:  posting,
		notes:    notes,
		users:    users,
	}, nil
}

func runWorkers(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.db.Close()

	registry := runner.NewTaskRegistry()
	registry.Register(tasks.NewEmailQueueTask(app.db, &app.cfg.Email))
	registry.Register(tasks.NewMailboxPollTask(&app.cfg.Mailbox, connector.DefaultFactory(), app.pipeline))
	registry.Register(tasks.NewMaildirScanTask(&app.cfg.Mailbox, app.pipeline))

	if app.cfg.Metrics.Enabled {
		go serveMetrics(&app.cfg.Metrics)
	}

	return runner.NewRunner(registry).Start(cmd.Context())
}

func serveMetrics(cfg *config.MetricsConfig) {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	addr := fmt.Sprintf(":%d", cfg.Port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.db.Close()

	var raw []byte
	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	note, err := app.pipeline.IngestMessage(cmd.Context(), raw)
	if err != nil {
		return err
	}
	fmt.Printf("Created note %d on thread %d\n", note.ID, note.ThreadID)
	return nil
}

func runNotify(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.db.Close()

	noteID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid note id %q: %w", args[0], err)
	}

	note, err := app.notes.GetNote(cmd.Context(), uint(noteID))
	if err != nil {
		return err
	}
	if err := app.notifier.NotifyNote(cmd.Context(), note); err != nil {
		return err
	}
	fmt.Printf("Notifications queued for note %d\n", note.ID)
	return nil
}

func runPost(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.db.Close()

	threadID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid thread id %q: %w", args[0], err)
	}
	noteType, err := models.ParseNoteType(postTypeFlag)
	if err != nil {
		return err
	}

	author, err := app.users.GetUserByEmail(cmd.Context(), postAuthorFlag)
	if err != nil {
		return err
	}

	body := postBodyFlag
	if body == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		body = string(raw)
	}

	note, err := app.posting.PostNote(cmd.Context(), uint(threadID), author, noteType, body)
	if err != nil {
		return err
	}
	fmt.Printf("Posted note %d to thread %d\n", note.ID, note.ThreadID)
	return nil
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
