package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clasharmies.app/internal/auth"
	"clasharmies.app/internal/config"
	"clasharmies.app/internal/domain"
	"clasharmies.app/internal/gamedata"
	"clasharmies.app/internal/httpapi"
	"clasharmies.app/internal/identity"
	"clasharmies.app/internal/obs"
	"clasharmies.app/internal/ratelimit"
	"clasharmies.app/internal/store/pg"
	"clasharmies.app/internal/transform"
)

var (
	version = "1.2.0"
	commit  = "dev"
)

func main() {
	// .env is a development convenience; absence is not an error
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// repositories: Postgres when a DSN is configured, in-memory otherwise
	var (
		armies domain.ArmyRepository
		users  domain.UserRepository
		probe  httpapi.ReadyProbe
	)
	if cfg.PGDSN != "" {
		store, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		armies, users = store, store
		probe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		log.Println("no DSN configured, using in-memory repositories")
		mem := domain.NewInMemory()
		armies, users = mem, mem
	}

	// rate-limit store: shared Redis when configured, per-process otherwise
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var limiterStore ratelimit.Store
	if cfg.RedisAddr != "" {
		rs, err := ratelimit.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rs.Close()
		limiterStore = rs
	} else {
		limiterStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.New(limiterStore)
	limiter.StartSweep(ctx, cfg.SweepInterval)

	var catalog *gamedata.Catalog
	if cfg.GameDataPath != "" {
		raw, err := os.ReadFile(cfg.GameDataPath)
		if err != nil {
			log.Fatalf("game data: %v", err)
		}
		if catalog, err = gamedata.Load(raw); err != nil {
			log.Fatalf("game data: %v", err)
		}
	}

	if cfg.GoogleClientID == "" {
		log.Fatal("GOOGLE_AUTH_CLIENT_ID is required")
	}
	var verifier identity.Verifier = identity.NewGoogleVerifier(cfg.GoogleClientID)
	authService := auth.NewService(users, verifier)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	api := httpapi.New(httpapi.Deps{
		Armies:     armies,
		Users:      users,
		Auth:       authService,
		Limiter:    limiter,
		Transform:  transform.Transformer{Catalog: catalog},
		ReadyProbe: probe,
		CORS:       httpapi.DefaultCORSPolicy(origins),
		Version:    version,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("starting clasharmies-api %s on %s", version, srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	var grpcSrv *httpapi.GRPCServer
	if cfg.GRPCAddr != "" {
		grpcSrv = httpapi.NewGRPCServer(probe)
		go func() {
			if err := grpcSrv.Serve(cfg.GRPCAddr); err != nil {
				log.Fatalf("grpc listen: %v", err)
			}
		}()
	}

	obs.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")
	obs.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.Stop()
	}
	log.Println("stopped")
}
