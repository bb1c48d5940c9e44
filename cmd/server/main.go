package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/arhyth/walletgo"
	"github.com/bwmarrin/snowflake"
	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfp := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()
	cfgfl, err := os.Open(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error opening config file")
	}
	cfg, err := walletgo.LoadConfig(cfgfl)
	cfgfl.Close()
	if err != nil {
		logger.Fatal().Err(err).Msg("error decoding config file")
	}

	node, err := snowflake.NewNode(cfg.Server.NodeID)
	if err != nil {
		logger.Fatal().
			Err(err).
			Int64("node_id", cfg.Server.NodeID).
			Msg("error starting ID generator")
	}

	repo := walletgo.NewMemRepository()
	svc := walletgo.Chain(
		walletgo.NewService(repo, node, cfg.AccountRules(), nil, &logger),
		walletgo.NewCircuitBreakMiddleware(walletgo.NewServiceBreaker(cfg)),
		walletgo.NewLimitMiddleware(walletgo.NewServiceLimits(cfg), cfg.Limits.AcquireTimeout),
		walletgo.NewValidationMiddleware(repo),
	)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: walletgo.NewHTTPHandler(svc, &logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err = grp.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("server stopped")
}
