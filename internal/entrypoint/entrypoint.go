package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlineshelf/internal/config"
	http_controllers "github.com/mrlokans/offlineshelf/internal/http"
	"github.com/mrlokans/offlineshelf/internal/scheduler"
	"github.com/mrlokans/offlineshelf/internal/tasks"
	"github.com/mrlokans/offlineshelf/internal/websec"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting OfflineShelf v%s", version)

	library, err := OpenLibrary(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize offline library: %v", err)
	}
	defer func() {
		if err := library.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	if cfg.Offline.MaxStorageBytes > 0 {
		log.Printf("Offline storage quota: %d bytes", cfg.Offline.MaxStorageBytes)
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewDownloadBookQueue(library.Service),
			tasks.NewVerifyStoreQueue(library.Service),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Browser sessions key the reader state machines
	sqlDB, err := library.DB.SQLDB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := websec.NewSessionManager(sqlDB, cfg.Session)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	secret := cfg.Session.Secret
	if secret == "" {
		secret, err = websec.GenerateSecret()
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		log.Printf("Generated session secret (set SESSION_SECRET to persist)")
	}

	// Periodic store verification and reader session pruning
	schedCfg := scheduler.Config{
		PruneSchedule: cfg.Reader.PruneSchedule,
		SessionTTL:    cfg.Reader.SessionTTL,
		VerifyRepair:  cfg.Verify.Repair,
	}
	if cfg.Verify.Enabled {
		schedCfg.VerifySchedule = cfg.Verify.Schedule
	}
	var enqueuer scheduler.TaskEnqueuer
	if taskClient != nil {
		enqueuer = taskClient
	}
	maintenance := scheduler.NewMaintenanceScheduler(schedCfg, enqueuer, library.Service, library.Reader)
	schedCtx, schedCancel := context.WithCancel(context.Background())
	if err := maintenance.Start(schedCtx); err != nil {
		log.Printf("WARNING: maintenance scheduler not started: %v", err)
	} else if next := maintenance.NextVerify(); next != nil {
		log.Printf("Next offline store verification at %s", next.Format(time.RFC3339))
	}

	routerCfg := http_controllers.RouterConfig{
		Library:           library.Service,
		Reader:            library.Reader,
		Database:          library.DB,
		Sessions:          sessionManager,
		SessionMiddleware: sessionManager,
		CSRFSecret:        websec.DecodeSecret(secret),
		SecureCookies:     cfg.Session.SecureCookies,
		QuotaBytes:        cfg.Offline.MaxStorageBytes,
		DownloadTimeout:   cfg.Offline.FetchTimeout * 2,
		Version:           version,
	}
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		schedCancel()
		maintenance.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
