package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/dsemenov/sentence-board/internal/auth"
	"github.com/dsemenov/sentence-board/internal/config"
	"github.com/dsemenov/sentence-board/internal/logger"
	"github.com/dsemenov/sentence-board/internal/middleware"
	"github.com/dsemenov/sentence-board/internal/sentence"
	"github.com/dsemenov/sentence-board/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is required")
	}

	// ── PostgreSQL (accounts) ────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pgPool.Close()
	accounts := store.NewPostgresStore(pgPool)
	if err := accounts.Migrate(ctx); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	// ── MongoDB (sentences) ──────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("mongo connect", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	sentences := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	// ── Redis (sessions) ─────────────────────────────────────
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	// ── MinIO (avatars) ──────────────────────────────────────
	avatars, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatal("minio connect", zap.Error(err))
	}

	// ── Handlers ─────────────────────────────────────────────
	googleOAuth := auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	authHandler := auth.NewHandler(accounts, sessions, avatars, googleOAuth, []byte(cfg.SessionSecret), log)
	sentenceHandler := sentence.NewHandler(sentences, log)

	requireAuth := middleware.RequireAuth(sessions, accounts)
	requireLogin := middleware.RequireAuthRedirect(sessions, accounts)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/auth/dashboard", http.StatusSeeOther)
	})

	// Browser-facing auth flows
	r.Route("/auth", func(r chi.Router) {
		r.Get("/register", authHandler.RegisterPage)
		r.Post("/register", authHandler.Register)
		r.Get("/login", authHandler.LoginPage)
		r.Post("/login", authHandler.Login)
		r.Get("/google", authHandler.GoogleLogin)
		r.Get("/google/redirect", authHandler.GoogleCallback)
		r.Get("/logout", authHandler.Logout)
		r.With(requireLogin).Get("/dashboard", authHandler.Dashboard)
		r.With(requireAuth).Put("/avatar", authHandler.UploadAvatar)
		r.Get("/avatar/{id}", authHandler.Avatar)
	})

	// Sentences API: reads are public, mutations need a session
	r.Route("/api/sentences", func(r chi.Router) {
		r.Get("/", sentenceHandler.List)
		r.Get("/users", sentenceHandler.Users)
		r.Get("/users/{name}", sentenceHandler.UserSentences)
		r.With(requireAuth).Post("/", sentenceHandler.Create)
		r.With(requireAuth).Put("/{id}", sentenceHandler.Update)
		r.With(requireAuth).Delete("/{id}", sentenceHandler.Delete)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
