package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"incubator-backend/internal/bus"
	"incubator-backend/internal/handlers"
	"incubator-backend/internal/logger"
	"incubator-backend/internal/mqtt"
	"incubator-backend/internal/repository"
	"incubator-backend/internal/repository/db"
	"incubator-backend/internal/server"
	"incubator-backend/internal/service"
)

func main() {
	// load config.yml first so the log level is honored
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// durable storage; failure here is fatal to the process
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// one broker session shared by the ingestion listener and the dispatcher
	session := mqtt.NewSession(mqtt.Config{
		BrokerURL: viper.GetString("mqtt.broker_url"),
		ClientID:  viper.GetString("mqtt.client_id"),
		Username:  viper.GetString("mqtt.username"),
		Password:  viper.GetString("mqtt.password"),
		QoS:       byte(viper.GetUint("mqtt.qos")),
	}, log)
	if err := session.Start(); err != nil {
		log.Fatalw("failed to start broker session", "err", err)
	}
	defer session.Stop()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	fanout := bus.New(viper.GetInt("bus.buffer"))
	services := service.NewService(repos, fanout, session, log, viper.GetDuration("registry.cache_ttl"))
	apiHandler := handlers.NewHandler(services, fanout, log)

	// context for the ingestion listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := services.Ingest.Run(ctx); err != nil {
			log.Fatalw("ingest listener failed to start", "err", err)
		}
	}()

	srv := &server.Server{}
	go func() {
		if err := srv.Run(viper.GetString("port"), apiHandler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()

	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "incubators.db")
		dbPath = "incubators.db"
	}
	return db.InitDB(dbPath)
}

// waitForShutdown listens for termination signals and performs graceful
// shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	// stop the ingestion listener
	cancel()

	// allow in-flight requests and relay teardowns to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
