package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ericfialkowski/shortlink/env"
	"github.com/ericfialkowski/shortlink/handlers"
	"github.com/ericfialkowski/shortlink/service"
	"github.com/ericfialkowski/shortlink/status"
	"github.com/ericfialkowski/shortlink/store"
	"github.com/ericfialkowski/shortlink/telemetry"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

var (
	port    = env.IntOrDefault("port", 8800)
	ip      = env.StringOrDefault("ip", "")
	storage = env.StringOrDefault("storage", "memory")

	mongoUri    = env.StringOrDefault("mongo_uri", "mongodb://localhost:27017")
	redisUri    = env.StringOrDefault("redis_uri", "localhost:6379")
	postgresUri = env.StringOrDefault("postgres_uri", "postgres://localhost:5432/shortlink")
	mysqlDsn    = env.StringOrDefault("mysql_dsn", "root@tcp(localhost:3306)/shortlink")
	sqlitePath  = env.StringOrDefault("sqlite_path", "./shortlink.db")
)

func createStore() store.LinkStore {
	switch storage {
	case "mongo":
		return store.CreateMongoStore(mongoUri)
	case "redis":
		return store.CreateRedisStore(redisUri)
	case "postgres":
		return store.CreatePostgresStore(postgresUri)
	case "mysql":
		return store.CreateMySQLStore(mysqlDsn)
	case "sqlite":
		return store.CreateSQLiteStore(sqlitePath)
	case "memory":
		return store.CreateMemoryStore()
	default:
		log.Fatalf("Unknown storage type %q", storage)
		return nil
	}
}

func main() {
	db := createStore()
	defer db.Cleanup()
	log.Printf("Using %s storage", storage)

	tel, err := telemetry.NewMetrics(context.Background())
	if err != nil {
		log.Printf("Couldn't initialize metrics, continuing without: %v", err)
	}
	defer tel.Shutdown(context.Background())

	svc := service.NewLinkService(db, service.UnknownResolver{}, service.Config{
		DefaultValidityMinutes: env.IntOrDefault("default_validity_minutes", 30),
		CodeLength:             env.IntOrDefault("code_length", 6),
	})

	s := status.NewStatus()
	ticker := time.NewTicker(env.DurationOrDefault("health_interval", 30*time.Second))
	go func() {
		for range ticker.C {
			if !db.IsLikelyOk() {
				s.Warn("Store is down")
			} else {
				s.Ok("All good")
			}
		}
	}()

	e := echo.New()
	h := handlers.CreateHandlers(svc, s, uuid.NewString(), tel)
	h.SetUp(e)

	bindAddr := fmt.Sprintf("%s:%d", ip, port)
	log.Printf("Listening to %s", bindAddr)

	//
	// blocking call, all setup needs to be done before this call
	//
	server := http.Server{Addr: bindAddr, Handler: e}
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Error listening: %v", err)
	}
}
