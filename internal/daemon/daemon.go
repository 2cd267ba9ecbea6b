package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bloom-health/bloom/internal/api"
	"github.com/bloom-health/bloom/internal/app/catalog"
	"github.com/bloom-health/bloom/internal/app/challenge"
	"github.com/bloom-health/bloom/internal/app/notify"
	"github.com/bloom-health/bloom/internal/app/progression"
	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/health"
	"github.com/bloom-health/bloom/internal/infra/keylock"
	_ "github.com/bloom-health/bloom/internal/infra/metrics" // register Prometheus metrics
	"github.com/bloom-health/bloom/internal/infra/sqlite"
	"github.com/bloom-health/bloom/internal/security"
)

// Daemon is the Bloom runtime. It wires together all services.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Server *api.Server
	cancel context.CancelFunc

	Progression   *progression.Service
	Challenges    *challenge.Service
	Notifications *notify.Service
	Health        *health.Checker
}

// New creates a Daemon from the on-disk config.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		dataDir = bloomHome()
	}
	cfg.Storage.DataDir = dataDir

	db, err := sqlite.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Config actions override the built-in table entry by entry.
	cat := catalog.New(append(catalog.Defaults(), cfg.Progression.Actions...))

	curve := progression.LevelCurve{
		BaseXP:   cfg.Progression.BaseXP,
		Growth:   cfg.Progression.Growth,
		MaxLevel: cfg.Progression.MaxLevel,
	}
	if curve.BaseXP <= 0 || curve.Growth <= 1 || curve.MaxLevel < 1 {
		curve = progression.DefaultCurve()
	}

	locks := keylock.New()
	clock := domain.SystemClock()

	prog := progression.NewService(db, cat, curve, progression.NewEvaluator(progression.DefaultBadges()), locks, clock)
	chal := challenge.NewService(db, locks, clock)
	chal.SetXPCrediter(prog)

	notif := notify.NewService(db, cfg.Notifications, clock)
	prog.SetNotifier(notif)
	chal.SetNotifier(notif)

	var issuerKey string
	kp, err := security.LoadOrCreateKeypair(dataDir)
	if err != nil {
		log.Printf("[daemon] WARNING: issuer keypair unavailable, certificates will be unsigned: %v", err)
	} else {
		chal.SetSigner(kp)
		issuerKey = kp.PublicKeyHex()
	}

	d := &Daemon{
		Config:        cfg,
		DB:            db,
		Progression:   prog,
		Challenges:    chal,
		Notifications: notif,
		Health:        health.NewChecker(db, dataDir),
	}

	srv := api.NewServer(prog, chal, notif)
	srv.SetHealthChecker(d.Health)
	srv.SetIssuerKey(issuerKey)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	if err := d.seedChallenges(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// seedChallenges loads challenge definitions from the seed file.
// Definitions are upserted on every start so edits take effect on
// restart without touching participant state.
func (d *Daemon) seedChallenges() error {
	challenges, err := LoadChallengeSeed(d.Config.Challenges.SeedFile)
	if err != nil {
		return err
	}
	for _, c := range challenges {
		if err := d.Challenges.Define(c); err != nil {
			return fmt.Errorf("seed challenge %s: %w", c.ID, err)
		}
	}
	if len(challenges) > 0 {
		log.Printf("[daemon] seeded %d challenge(s) from %s", len(challenges), d.Config.Challenges.SeedFile)
	}
	return nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.Server.Host, d.Config.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("Bloom serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
