package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"task-tracker/backend/internal/cache"
	"task-tracker/backend/internal/config"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tasktracker",
		Short:         "Shared task tracker API",
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background worker",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	})

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Generate due-soon notifications for every user once",
		RunE:  runSweep,
	}
	sweep.Flags().Duration("horizon", 0, "look-ahead window (default NOTIFY_HORIZON)")
	root.AddCommand(sweep)

	return root
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Migrate(); err != nil {
		return err
	}
	log.Println("Schema is up to date")
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	horizon, err := cmd.Flags().GetDuration("horizon")
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	cfg.Cache.Enabled = false
	a, err := newApp(cfg, pool, nil)
	if err != nil {
		pool.Close()
		return err
	}
	defer a.close()

	if horizon == 0 {
		horizon = cfg.Notify.Horizon
	}
	result, err := a.notifications.SweepDueSoon(cmd.Context(), horizon)
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	if err := pool.Migrate(); err != nil {
		pool.Close()
		return err
	}

	var redisCache *cache.RedisCache
	if cfg.Cache.Enabled || cfg.Worker.Concurrency > 0 {
		redisCache = openRedis(cfg)
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		if err := redisCache.Health(pingCtx); err != nil {
			log.Printf("Redis unavailable at %s, continuing without it: %v", cfg.GetRedisAddr(), err)
			redisCache.Close()
			redisCache = nil
		}
		cancel()
	}

	a, err := newApp(cfg, pool, redisCache)
	if err != nil {
		pool.Close()
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runBackground(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      a.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (%s)", srv.Addr, cfg.Server.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	case err := <-errCh:
		stop()
		wg.Wait()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	wg.Wait()
	return nil
}
