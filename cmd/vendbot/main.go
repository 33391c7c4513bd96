package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smmvend/vendbot/internal/catalog"
	"github.com/smmvend/vendbot/internal/config"
	"github.com/smmvend/vendbot/internal/discord"
	"github.com/smmvend/vendbot/internal/keepalive"
	"github.com/smmvend/vendbot/internal/router"
	"github.com/smmvend/vendbot/internal/smm"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	logger := zap.Must(zap.NewProduction())
	defer func() { _ = logger.Sync() }()

	if err := run(logger, *configPath); err != nil {
		logger.Fatal("vendbot exited", zap.Error(err))
	}
	logger.Info("vendbot stopped")
}

func run(log *zap.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	entries, err := cfg.Entries()
	if err != nil {
		return err
	}
	cat, err := catalog.New(entries)
	if err != nil {
		return err
	}

	client := smm.NewClient(smm.Config{
		APIURL: cfg.SMMAPIURL,
		APIKey: cfg.SMMAPIKey,
	}, log.Named("smm"))
	defer func() { _ = client.Close() }()

	rtr := router.New(cat, client, log.Named("router"))

	adapter, err := discord.New(cfg.DiscordToken, rtr, log.Named("discord"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := adapter.Open(); err != nil {
		return err
	}
	log.Info("vendbot online",
		zap.String("version", version),
		zap.Int("catalog_entries", cat.Len()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return keepalive.New(cfg.ListenAddr, log.Named("keepalive")).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return adapter.Close()
	})

	err = g.Wait()

	// Orders already acknowledged still get their final reply.
	log.Info("draining in-flight orders")
	rtr.Wait()

	return err
}
