package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/auth"
	"github.com/Shivanand-hulikatti/event-checkin/internal/config"
	"github.com/Shivanand-hulikatti/event-checkin/internal/database"
	"github.com/Shivanand-hulikatti/event-checkin/internal/events"
	"github.com/Shivanand-hulikatti/event-checkin/internal/handler"
	"github.com/Shivanand-hulikatti/event-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkin/internal/service"
	"github.com/Shivanand-hulikatti/event-checkin/internal/token"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	memory bool
	seed   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(_ *RootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the check-in HTTP API",
		Long: `Run the check-in HTTP API. Settings come from the environment or a
.env file (PORT, DATABASE_URL, JWT_SECRET, TOKEN_MAX_AGE, RABBIT_URL, ...).

Check-in tokens older than TOKEN_MAX_AGE (default 720h) are refused as
invalid codes. Set TOKEN_MAX_AGE=0 to accept tokens of any age.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.ErrOrStderr(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "keep attendance in memory instead of Postgres")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "JSON fixture to load on start")
	return cmd
}

func newLogger(w io.Writer, cfg config.App) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// store bundles the read and write sides of whichever backend is configured.
type store struct {
	events      service.EventCatalog
	registrants service.RegistrantDirectory
	rsvps       service.AttendanceStore
	seeder      Seeder
}

type pgSeeder struct {
	*repository.EventRepository
	*repository.RegistrantRepository
	*repository.RSVPRepository
}

func openStore(ctx context.Context, cfg config.App, memory bool, logger *slog.Logger) (*store, func(), error) {
	if memory {
		mem := repository.NewMemory()
		logger.Warn("using in-memory attendance store; data is lost on exit")
		return &store{events: mem, registrants: mem, rsvps: mem, seeder: mem}, func() {}, nil
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		MaxConns: cfg.DBMaxConns,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("connected to PostgreSQL")

	ev := repository.NewEventRepository(pool)
	regs := repository.NewRegistrantRepository(pool)
	rsvps := repository.NewRSVPRepository(pool)
	return &store{
		events:      ev,
		registrants: regs,
		rsvps:       rsvps,
		seeder:      pgSeeder{ev, regs, rsvps},
	}, pool.Close, nil
}

func runServe(ctx context.Context, logOut io.Writer, opts *serveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(logOut, cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Attendance store ───────────────────────────────────────────────
	st, closeStore, err := openStore(ctx, cfg, opts.memory, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.seed != "" {
		f, err := ReadSeedFile(opts.seed)
		if err != nil {
			return err
		}
		if err := f.Apply(ctx, st.seeder); err != nil {
			return err
		}
		logger.Info("seed loaded", slog.String("file", opts.seed), slog.Int("rsvps", len(f.RSVPs)))
	}

	// ── 2. Event publisher ───────────────────────────────────────────────
	var pub service.Publisher = events.Noop{}
	if cfg.RabbitURL != "" {
		p, err := events.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			return err
		}
		defer p.Close()
		pub = p
		logger.Info("publishing domain events", slog.String("exchange", cfg.EventsExchange))
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	m := metrics.New()
	codec := token.Codec{MaxAge: cfg.TokenMaxAge, Skew: cfg.TokenClockSkew}
	intake := service.NewIntake(st.events, st.registrants, st.rsvps, codec)
	reconciler := service.NewReconciler(st.rsvps, pub, logger)
	h := handler.NewCheckinHandler(
		service.NewDesk(intake, reconciler, m, logger),
		service.NewAdmin(intake, reconciler, st.rsvps, pub, m, logger),
		service.NewReports(st.events, st.registrants, st.rsvps),
		logger,
	)
	router := handler.NewRouter(h, handler.RouterConfig{
		Signer:      auth.NewSigner(cfg.JWTSecret),
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}
