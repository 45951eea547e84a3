package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"keyward.org/internal/auth"
	"keyward.org/internal/config"
	"keyward.org/internal/httpapi"
	"keyward.org/internal/obs"
	"keyward.org/internal/store/memory"
	"keyward.org/internal/store/pg"
	redisstore "keyward.org/internal/store/redis"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		users       auth.UserRepository
		revocations auth.RevocationStore
		db          *sql.DB
	)

	if cfg.PGDSN != "" {
		store, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer store.Close()
		users = store
		revocations = store
		db = store.DB()
	} else {
		log.Println("KEYWARD_PG_DSN not set, using in-memory stores")
		users = memory.NewUserRepository()
		revocations = memory.NewRevocationStore()
	}

	probe := httpapi.ReadyProbe{DB: db}
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		rev, err := redisstore.NewRevocationStore(client)
		if err != nil {
			log.Fatalf("redis revocation store: %v", err)
		}
		revocations = rev
		probe.Extra = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}

	codec, err := auth.NewCodec([]byte(cfg.Secret), auth.WithCodecIssuer(cfg.Issuer))
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	svc, err := auth.NewService(users, revocations, codec,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	accounts, err := auth.NewUsers(users)
	if err != nil {
		log.Fatalf("users: %v", err)
	}

	api := httpapi.New(svc, accounts, probe, version)

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, httpapi.NewHealthServer(probe))
		go func() {
			log.Printf("gRPC health on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting keyward-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	log.Println("Stopped")
}
