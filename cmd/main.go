package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/apophisnow/icemaker/docs"
	"github.com/apophisnow/icemaker/internal/config"
	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/hal"
	"github.com/apophisnow/icemaker/internal/handlers"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/mqtt"
	"github.com/apophisnow/icemaker/internal/repository"
	"github.com/apophisnow/icemaker/internal/repository/db"
	"github.com/apophisnow/icemaker/internal/server"
	"github.com/apophisnow/icemaker/internal/service"
	"github.com/apophisnow/icemaker/internal/simulator"
)

const shutdownTimeout = 10 * time.Second

// @title        Icemaker Controller API
// @version      1.0
// @description  Operator API of the ice-maker controller.
// @BasePath     /
func main() {
	// load configs/config.yml, .env and ICEMAKER_* overrides
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level)

	// open DB
	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(sqlDB)

	// hardware
	device, sim, err := openHAL(cfg, log)
	if err != nil {
		log.Fatalw("failed to open hardware", "err", err, "mode", cfg.HAL.Mode)
	}

	// controller, resumed from the last run
	ctrl := controller.New(device, repos.CounterRepo, log, controller.WithConfig(cfg.Cycle))
	bootCtx, bootCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := service.Restore(bootCtx, ctrl, repos, log); err != nil {
		log.Errorw("restore_failed", "err", err)
	}
	bootCancel()

	// wire dependencies
	services := service.NewService(ctrl, repos, sim, log, service.WithRetention(cfg.DB.Retention()))
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	runBackground(&wg, func() { services.Journal.Run(ctx) })
	runBackground(&wg, func() { services.Scheduler.Run(ctx) })

	closeMQTT := startMQTT(ctx, &wg, cfg, services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)
	log.Infow("icemaker_started", "port", cfg.Port, "hal", cfg.HAL.Mode, "state", ctrl.State().String())

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
	wg.Wait()
	closeMQTT()

	persistCtx, persistCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer persistCancel()
	if err := service.Persist(persistCtx, ctrl, repos); err != nil {
		log.Errorw("persist_failed", "err", err)
	}
	if err := device.Close(); err != nil {
		log.Errorw("hardware_close_failed", "err", err)
	}
	log.Infow("icemaker_stopped", "state", ctrl.State().String())
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.AppConfig, log *logger.Logger) (*sql.DB, error) {
	dbPath := cfg.DB.Path
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "icemaker.db")
		dbPath = "icemaker.db"
	}
	return db.InitDB(dbPath)
}

// openHAL builds the simulated or the GPIO/one-wire hardware layer. sim is
// nil on real hardware.
func openHAL(cfg *config.AppConfig, log *logger.Logger) (hal.HAL, hal.SimulationControl, error) {
	if cfg.Simulated() {
		s := hal.NewSimulated(simulator.New(), hal.WithSpeed(cfg.Simulator.Speed))
		log.Infow("hal_simulated", "speed", s.Speed())
		return s, s, nil
	}

	pins, err := cfg.HAL.PinMap()
	if err != nil {
		return nil, nil, err
	}
	out, err := hal.OpenGPIO(cfg.HAL.GPIOChip, pins.Lines(), cfg.HAL.ActiveLow)
	if err != nil {
		return nil, nil, err
	}
	dev, err := hal.NewReal(out, hal.NewW1Reader(cfg.HAL.W1Dir), pins, cfg.HAL.Probes())
	if err != nil {
		_ = out.Close()
		return nil, nil, err
	}
	log.Infow("hal_real", "chip", cfg.HAL.GPIOChip, "active_low", cfg.HAL.ActiveLow, "w1_dir", cfg.HAL.W1Dir)
	return dev, nil, nil
}

// startMQTT runs the home-automation bridge when enabled. The returned func
// disconnects from the broker and stops the embedded one.
func startMQTT(ctx context.Context, wg *sync.WaitGroup, cfg *config.AppConfig, services *service.Service, log *logger.Logger) func() {
	if !cfg.MQTT.Enabled {
		return func() {}
	}
	var closers []func()

	if cfg.MQTT.EmbeddedBroker {
		broker, err := mqtt.StartBroker(cfg.MQTT.EmbeddedAddr)
		if err != nil {
			log.Errorw("mqtt_broker_failed", "err", err, "addr", cfg.MQTT.EmbeddedAddr)
			return func() {}
		}
		log.Infow("mqtt_broker_started", "addr", cfg.MQTT.EmbeddedAddr)
		closers = append(closers, func() { _ = broker.Close() })
	}

	pub, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Prefix:   cfg.MQTT.Prefix,
		QoS:      byte(cfg.MQTT.QoS),
	}, log)
	if err != nil {
		// The controller runs without the bridge.
		log.Errorw("mqtt_connect_failed", "err", err, "broker", cfg.MQTT.Broker)
		return runClosers(closers)
	}
	closers = append([]func(){func() { _ = pub.Close() }}, closers...)

	bridge := mqtt.NewBridge(pub, cfg.MQTT.Prefix, services.Monitoring, services.Icemaker, log)
	runBackground(wg, func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("mqtt_bridge_failed", "err", err)
		}
	})
	return runClosers(closers)
}

func runClosers(closers []func()) func() {
	return func() {
		for _, c := range closers {
			c()
		}
	}
}

func runBackground(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
