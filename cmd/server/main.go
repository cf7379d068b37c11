package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/api"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/delivery"
	"github.com/ignite/outreach-engine/internal/events"
	"github.com/ignite/outreach-engine/internal/pkg/distlock"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/render"
	"github.com/ignite/outreach-engine/internal/repository/memory"
	"github.com/ignite/outreach-engine/internal/repository/postgres"
	"github.com/ignite/outreach-engine/internal/scoring"
	"github.com/ignite/outreach-engine/internal/service/actions"
	"github.com/ignite/outreach-engine/internal/service/contact"
	"github.com/ignite/outreach-engine/internal/service/dashboard"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
	"github.com/ignite/outreach-engine/internal/service/template"
	"github.com/ignite/outreach-engine/internal/storage"
)

// repos is the set of repositories behind one database driver.
type repos struct {
	contacts    contact.Repository
	sequences   sequence.Repository
	templates   template.Repository
	enrollments enrollment.Repository
	actions     actions.Source
	dashboard   dashboard.Repository
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if lvl, ok := logger.ParseLevel(cfg.Logging.Level); ok {
		logger.SetLevel(lvl)
	}
	logger.SetRedactPII(cfg.Logging.Redact())

	loc, err := cfg.Engine.Location()
	if err != nil {
		log.Fatalf("Invalid engine config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var db *sql.DB
	var r repos
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgres.Open(ctx, cfg.Database.URL, postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime(),
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(db); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			log.Println("Database migrations applied")
		}
		r = repos{
			contacts:    postgres.NewContactRepo(db),
			sequences:   postgres.NewSequenceRepo(db),
			templates:   postgres.NewTemplateRepo(db),
			enrollments: postgres.NewEnrollmentRepo(db),
			actions:     postgres.NewActionSource(db),
			dashboard:   postgres.NewDashboardRepo(db),
		}
		log.Println("Using PostgreSQL repositories")
	default:
		store := memory.New()
		r = repos{
			contacts:    store.Contacts(),
			sequences:   store.Sequences(),
			templates:   store.Templates(),
			enrollments: store.Enrollments(),
			actions:     store.Actions(),
			dashboard:   store.Dashboard(),
		}
		log.Println("Using in-memory repositories (data is lost on restart)")
	}

	redisClient := connectRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var pub events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		np, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			log.Printf("Warning: NATS connection failed (%s): %v; activity events disabled", cfg.NATS.URL, err)
		} else {
			pub = np
			log.Printf("Publishing activity events to %s on %s.activity.*", cfg.NATS.URL, cfg.NATS.Prefix)
		}
	}
	defer pub.Close()

	scorer, err := loadScorer(ctx, cfg.Scoring)
	if err != nil {
		log.Fatalf("Failed to load scoring rules: %v", err)
	}
	log.Printf("Scoring rule table %s loaded", scorer.Table().Version)

	mailer, err := buildMailer(ctx, cfg.SES)
	if err != nil {
		log.Fatalf("Failed to initialize SES: %v", err)
	}

	opts := []enrollment.Option{enrollment.WithPublisher(pub, cfg.NATS.Prefix)}
	if locks := distlock.NewFactory(redisClient, db, "enrollment:", cfg.Engine.LockTTL()); locks != nil {
		opts = append(opts, enrollment.WithLocks(locks))
	}
	renderer := render.NewTemplateService()
	enrollments := enrollment.NewService(r.enrollments, r.contacts, r.sequences, opts...)
	templates := template.NewService(r.templates, r.contacts, renderer)

	server := api.NewServer(cfg.Server, api.Deps{
		Contacts:    contact.NewService(r.contacts, scorer),
		Sequences:   sequence.NewService(r.sequences, enrollments, templates),
		Templates:   templates,
		Enrollments: enrollments,
		Actions:     actions.NewService(r.actions, renderer, loc, cfg.Engine.PreviewLength),
		Dashboard:   dashboard.NewService(r.dashboard),
		Mailer:      mailer,
		Health:      api.NewHealthChecker(db, redisClient),
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s (timezone %s)", cfg.Server.Addr(), loc)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// connectRedis returns nil when Redis is not configured or unreachable.
// Without it, locks fall back to PostgreSQL advisory locks.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		log.Println("Redis not configured; using PG advisory locks where available")
		return nil
	}
	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.Addr); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed (%s): %v; falling back to PG advisory locks", cfg.Addr, err)
		client.Close()
		return nil
	}
	log.Printf("Redis connected: %s (enrollment locking enabled)", cfg.Addr)
	return client
}

func loadScorer(ctx context.Context, cfg config.ScoringConfig) (*scoring.Engine, error) {
	if cfg.RulesPath == "" {
		return scoring.MustDefault(), nil
	}
	loc, err := storage.ParseLocation(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	blob, err := storage.Open(ctx, loc, cfg.S3Region)
	if err != nil {
		return nil, err
	}
	table, err := scoring.Load(ctx, blob, loc.Key)
	if err != nil {
		return nil, err
	}
	return scoring.New(table)
}

func buildMailer(ctx context.Context, cfg config.SESConfig) (delivery.Mailer, error) {
	if !cfg.Enabled {
		log.Println("SES disabled; emails are logged, not sent")
		return delivery.DryRun{}, nil
	}
	sender := delivery.Sender{FromEmail: cfg.FromEmail, FromName: cfg.FromName, ReplyTo: cfg.ReplyTo}
	m, err := delivery.NewSESMailerFromKeys(ctx, cfg.Region, cfg.AccessKey, cfg.SecretKey, sender, cfg.ConfigurationSet)
	if err != nil {
		return nil, err
	}
	log.Printf("SES delivery enabled (region %s, from %s)", cfg.Region, logger.RedactEmail(cfg.FromEmail))
	return m, nil
}
