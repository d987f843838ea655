package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"gitlab.com/icecc-go.net/internal/adapter/logging"
	"gitlab.com/icecc-go.net/internal/adapter/redis/schedulerport"
	"gitlab.com/icecc-go.net/internal/announcer"
	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/config"
	"gitlab.com/icecc-go.net/internal/core/ports/secondary"
	"gitlab.com/icecc-go.net/internal/daemon"
	logger2 "gitlab.com/icecc-go.net/internal/global/logger"
	http2 "gitlab.com/icecc-go.net/internal/http"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("iceccd", pflag.ContinueOnError)
	configPath := flags.String("config", "", "YAML config file")
	envFile := flags.String("env-file", "", "KEY=VALUE file loaded into the environment")
	listen := flags.String("listen", "", "address to answer clients on (overrides config)")
	schedulerHost := flags.String("scheduler-host", "", "static scheduler host (overrides config)")
	schedulerPort := flags.Int("scheduler-port", 0, "static scheduler port (overrides config)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *envFile != "" {
		if err := config.LoadEnv(*envFile); err != nil {
			return err
		}
	}

	sysCfg, err := config.LoadDaemonConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		sysCfg.ListenAddr = *listen
	}
	if *schedulerHost != "" {
		sysCfg.Scheduler.Host = *schedulerHost
	}
	if *schedulerPort != 0 {
		sysCfg.Scheduler.Port = *schedulerPort
	}

	logger := logging.NewZapLoggerWithOptions(logging.Options{
		Debug:    sysCfg.DebugMode,
		Level:    zapcore.InfoLevel,
		Encoding: "json",
	})
	logger2.Set(logger)
	defer logger.Sync()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("Starting icecc daemon")

	// SECONDARY PORTS
	static := daemon.StaticLocator{Addr: comm.SchedulerAddr{Host: sysCfg.Scheduler.Host, Port: sysCfg.Scheduler.Port}}
	locators := []secondary.SchedulerLocator{}
	ctxBg, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	var schedulerAnnouncer *announcer.Announcer
	if sysCfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     sysCfg.Redis.Url,
			Password: sysCfg.Redis.Password,
			DB:       sysCfg.Redis.DB,
		})
		defer redisClient.Close()
		schedulerRepo := schedulerport.NewSchedulerRepository(redisClient, sysCfg.Redis.Key, logger)
		locators = append(locators, schedulerRepo)

		if sysCfg.Announce && static.Addr.Host != "" {
			schedulerAnnouncer = announcer.NewAnnouncer(schedulerRepo, static.Addr, sysCfg.AnnounceInterval, logger)
			schedulerAnnouncer.Start(ctxBg)
		}
	}
	locators = append(locators, static)
	locator := daemon.NewChainLocator(logger, locators...)

	//server
	daemonServer := daemon.NewDaemonServer(locator, logger, daemon.WithAddress(sysCfg.ListenAddr))
	if err := daemonServer.Start(); err != nil {
		return err
	}

	var httpServer *http2.Server
	if sysCfg.HTTPPort > 0 {
		httpServer = http2.NewServer(sysCfg.HTTPPort, "iceccd", locator, logger)
		if err := httpServer.Init(); err != nil {
			return err
		}
		if err := httpServer.Start(ctxBg); err != nil {
			return err
		}
	}

	<-quit
	logger.Info("Shutting down daemon...")

	cancelBg()
	if schedulerAnnouncer != nil {
		schedulerAnnouncer.Wait()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := daemonServer.Stop(ctx); err != nil {
		logger.Warn("Daemon did not stop cleanly", "error", err)
	}
	if httpServer != nil {
		if err := httpServer.Stop(ctx); err != nil {
			logger.Warn("Http server did not stop cleanly", "error", err)
		}
	}

	logger.Info("successfully shutdown daemon")
	return nil
}
