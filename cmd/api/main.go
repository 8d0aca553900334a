package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"classifier-api/internal/features"
	"classifier-api/internal/handlers/inference"
	"classifier-api/internal/keys"
	"classifier-api/internal/registry"
	"classifier-api/internal/routers"
	"classifier-api/internal/shared"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
)

func main() {
	// Flags / ENV Variables
	appName := flag.String("app-name", "Breast Cancer Classifier", "Application name")
	version := flag.String("version", "1.0.0", "Application version")
	apiSecretKey := flag.String("api-secret-key", "", "Master API key")
	manifestPath := flag.String("model-manifest", "", "YAML manifest of model artifacts, local path or s3://bucket/key")
	assetsDir := flag.String("assets-dir", "assets", "Directory holding the stock artifacts when no manifest is given")
	unknownFeatures := flag.String("unknown-features", "ignore", "Policy for fields outside the schema: ignore or reject")
	dsn := flag.String("dsn", "", "MySQL DSN for the api_key table")
	redisAddr := flag.String("redis-addr", "", "Redis host:port")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")
	s3Endpoint := flag.String("s3-endpoint", "", "S3 compatible endpoint")
	s3Region := flag.String("s3-region", "us-east-1", "S3 region")
	s3AccessKey := flag.String("s3-access-key", "", "S3 access key")
	s3SecretKey := flag.String("s3-secret-key", "", "S3 secret key")
	port := flag.String("port", shared.DefaultPort, "Listen port")
	debug := flag.Bool("debug", false, "Debug enabled")
	logFile := flag.String("log-file", "", "Also write logs to this file, rotated")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	logger, err := newLogger(*debug, *logFile)
	if err != nil {
		panic("Failed init logger")
	}
	log := logger.Sugar()
	defer func() {
		_ = log.Sync()
	}()

	policy, err := features.ParseUnknownPolicy(*unknownFeatures)
	if err != nil {
		panic(err)
	}

	// Artifacts
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), shared.DefaultLoadTimeout)
	defer cancelLoad()
	src := registry.MultiSource{Local: registry.FileSource{}}
	s3Config := registry.S3Config{
		Endpoint:  *s3Endpoint,
		Region:    *s3Region,
		AccessKey: *s3AccessKey,
		SecretKey: *s3SecretKey,
	}
	if strings.HasPrefix(*manifestPath, "s3://") {
		if src.S3, err = registry.NewS3Source(loadCtx, s3Config); err != nil {
			panic(err)
		}
	}
	manifest := registry.DefaultManifest(*assetsDir)
	if *manifestPath != "" {
		manifest, err = registry.LoadManifest(loadCtx, src, *manifestPath)
		if err != nil {
			panic(err)
		}
	}
	if src.S3 == nil && usesS3(manifest) {
		if src.S3, err = registry.NewS3Source(loadCtx, s3Config); err != nil {
			panic(err)
		}
	}
	reg, err := registry.LoadRegistry(loadCtx, log, src, manifest.Models, manifest.Scaler)
	if err != nil {
		log.Errorw("Failed loading model registry", "error", err)
		_ = log.Sync()
		os.Exit(1)
	}

	// Optional key database and cache
	var db *sql.DB
	if *dsn != "" {
		db, err = sql.Open("mysql", *dsn)
		if err != nil {
			panic(fmt.Sprintf("failed initializing sqlClient: %s", err))
		}
		err = db.Ping()
		if err != nil {
			panic(fmt.Sprintf("failed ping to sql db: %s", err))
		}
	}
	var redisClient *redis.Client
	if *redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: "",
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			panic(fmt.Sprintf("failed ping to redis db: %s", err))
		}
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if db != nil {
			_ = db.Close()
		}
	}()
	if *apiSecretKey == "" && db == nil {
		log.Warn("No API_SECRET_KEY or DSN configured, every authenticated route will return 403")
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = shared.DefaultRequestTimeout
	e.Server.WriteTimeout = shared.DefaultRequestTimeout
	routers.RegisterRoutes(e, routers.Config{
		AppName:       *appName,
		Version:       *version,
		MetricsAPIKey: *metricsAPIKey,
		Keys:          keys.NewStore(*apiSecretKey, db, redisClient, log),
		Inference:     inference.NewInferenceHandler(reg, features.NewAligner(policy), log),
		Log:           log,
	})

	go func() {
		log.Infow("Starting server", "port", *port, "models", reg.Names(), "unknown_features", policy.String())
		if err := e.Start(":" + *port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}

func usesS3(m *registry.Manifest) bool {
	if strings.HasPrefix(m.Scaler, "s3://") {
		return true
	}
	for _, loc := range m.Models {
		if strings.HasPrefix(loc, "s3://") {
			return true
		}
	}
	return false
}
