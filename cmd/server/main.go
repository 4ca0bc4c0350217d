package main

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/internal/infrastructure/events"
	"NSSaDS/fileshare/internal/infrastructure/health"
	"NSSaDS/fileshare/internal/infrastructure/network"
	"NSSaDS/fileshare/internal/infrastructure/repository"
	"NSSaDS/fileshare/internal/usecase"
	"NSSaDS/fileshare/pkg/config"
	"NSSaDS/fileshare/pkg/logger"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		host       = flag.String("host", "localhost", "Server host")
		port       = flag.String("port", "5000", "Server port")
		storeDir   = flag.String("store", "./server_files", "Directory holding shared files")
		maxConns   = flag.Int("max-connections", 10, "Maximum concurrent connections")
		eventsAddr = flag.String("events", "", "Address for the WebSocket event feed (empty disables)")
		healthAddr = flag.String("health", "", "Address for the gRPC health service (empty disables)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFile    = flag.String("log-file", "", "Also write logs to this file")
	)
	flag.Parse()

	cfg := config.NewConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Server.Host = *host
		case "port":
			cfg.Server.Port = *port
		case "store":
			cfg.Server.StoreDir = *storeDir
		case "max-connections":
			cfg.Server.MaxConnections = *maxConns
		case "events":
			cfg.Server.EventsAddr = *eventsAddr
		case "health":
			cfg.Server.HealthAddr = *healthAddr
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-file":
			cfg.Logging.File = *logFile
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg, logCloser, err := logger.Open(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer logCloser.Close()

	if err := run(cfg, logg); err != nil {
		logg.Errorf("Server error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	store, err := repository.NewStore(cfg.Server.StoreDir)
	if err != nil {
		return err
	}
	if removed, err := store.Cleanup(); err != nil {
		log.Warnf("Failed to clean up staging files: %v", err)
	} else if removed > 0 {
		log.Infof("Removed %d stale partial uploads", removed)
	}

	registry := network.NewConnectionRegistry()
	stats := events.NewStats()
	observers := events.Multi{events.NewLogObserver(log), stats}

	var hub *events.Hub
	var eventsSrv *http.Server
	if cfg.Server.EventsAddr != "" {
		hub = events.NewHub(log)
		observers = append(observers, hub)

		mux := http.NewServeMux()
		mux.Handle("/events", hub)
		mux.Handle("/stats", stats)
		mux.Handle("/connections", registry)
		eventsSrv = &http.Server{
			Addr:              cfg.Server.EventsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Infof("Event feed on ws://%s/events", cfg.Server.EventsAddr)
			if err := eventsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Event feed error: %v", err)
			}
		}()
	}

	var observer domain.Observer = observers

	if cfg.Server.WatchStore {
		watcher, err := repository.NewWatcher(store, observer, log)
		if err != nil {
			log.Warnf("Store watcher disabled: %v", err)
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
		}
	}

	commandHandler := usecase.NewCommandHandler(store, cfg.Server.MaxUploadSize, log)
	connMgr := network.NewTCPConnectionManager(&cfg.Server, commandHandler, registry, observer, log)
	var server domain.Server = network.NewTCPServer(&cfg.Server, connMgr, registry, log)

	if err := server.Listen(); err != nil {
		return err
	}

	var healthSrv *health.Server
	if cfg.Server.HealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.HealthAddr)
		if err != nil {
			server.Stop()
			return fmt.Errorf("failed to start health service: %w", err)
		}
		healthSrv = health.NewServer()
		healthSrv.SetServing(true)
		go func() {
			log.Infof("Health service on %s", lis.Addr())
			if err := healthSrv.Serve(lis); err != nil {
				log.Errorf("Health service error: %v", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(ctx)
	}()

	fmt.Printf("File server listening on %s\n", server.Addr())
	fmt.Printf("Sharing %s\n", store.Dir())
	fmt.Println("Supported commands: LIST, UPLOAD, DOWNLOAD, DISCONNECT")

	select {
	case <-sigChan:
		fmt.Println("\nShutting down server...")
	case err = <-serveErr:
	}

	if healthSrv != nil {
		healthSrv.SetServing(false)
	}
	if stopErr := server.Stop(); stopErr != nil {
		log.Warnf("Error stopping server: %v", stopErr)
	}
	if healthSrv != nil {
		healthSrv.Stop()
	}
	if eventsSrv != nil {
		hub.Close()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		eventsSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	fmt.Println("Server stopped")
	return err
}
