package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ovaphlow/pitchfork/service-signup/internal/identity"
	identityrepo "github.com/ovaphlow/pitchfork/service-signup/internal/identity/repo"
	"github.com/ovaphlow/pitchfork/service-signup/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration"
	registrationrepo "github.com/ovaphlow/pitchfork/service-signup/internal/registration/repo"
	"github.com/ovaphlow/pitchfork/service-signup/internal/router"
	"github.com/ovaphlow/pitchfork/service-signup/internal/session"
	"github.com/ovaphlow/pitchfork/service-signup/pkg/database"
	"github.com/ovaphlow/pitchfork/service-signup/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-signup")

	dbCfg := database.ConfigFromEnv()
	db, err := database.ConnectX(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	regCfg := registration.ConfigFromEnv()
	idCfg := identity.ConfigFromEnv()
	if dbCfg.EnsureTables {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := ensureTables(ctx, db, regCfg, idCfg)
		cancel()
		if err != nil {
			sugar.Fatalf("ensure tables: %v", err)
		}
	}

	sessions, err := session.NewService(session.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("session: %v", err)
	}
	provider, err := identity.NewProvider(idCfg, db, sessions)
	if err != nil {
		sugar.Fatalf("identity provider: %v", err)
	}
	ids, err := utilities.NewIDGeneratorFromEnv()
	if err != nil {
		sugar.Fatalf("id generator: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	orphans := registrationrepo.NewOrphanRepo(db)
	svc := registration.NewService(
		regCfg,
		provider,
		registrationrepo.NewInstitutionRepo(db),
		registrationrepo.NewProfileRepo(db, ids),
		orphans,
		metrics.New(reg),
		sugar,
	)
	sugar.Infow("registration configured",
		"identity_provider", idCfg.Provider,
		"timeout", regCfg.Timeout,
		"fallback_institution_id", regCfg.FallbackInstitutionID,
		"compensation", regCfg.Compensation,
	)

	adminKey := os.Getenv("ADMIN_API_KEY")
	if adminKey == "" {
		sugar.Warn("ADMIN_API_KEY not set; operator endpoints will refuse every request")
	}
	handler := router.RegisterRoutes(sugar, router.Routes{
		Registration: registration.NewHandler(svc, orphans, sugar),
		Identity:     identity.NewHandler(provider, sugar),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminKey:     adminKey,
	})
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

func ensureTables(ctx context.Context, db *sqlx.DB, regCfg registration.Config, idCfg identity.Config) error {
	if idCfg.Provider == identity.ProviderLocal {
		if err := identityrepo.NewIdentityRepo(db).EnsureTable(ctx); err != nil {
			return fmt.Errorf("identities: %w", err)
		}
	}
	if err := registrationrepo.NewInstitutionRepo(db).EnsureTable(ctx, regCfg.FallbackInstitutionID); err != nil {
		return fmt.Errorf("institutions: %w", err)
	}
	// profiles reference institutions, so they come second
	if err := registrationrepo.NewProfileRepo(db, nil).EnsureTable(ctx); err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	if err := registrationrepo.NewOrphanRepo(db).EnsureTable(ctx); err != nil {
		return fmt.Errorf("orphan identities: %w", err)
	}
	return nil
}
