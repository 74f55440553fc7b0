package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/phrasebook/pkg/api"
	"github.com/japaniel/phrasebook/pkg/config"
	"github.com/japaniel/phrasebook/pkg/scoring"
	"github.com/japaniel/phrasebook/pkg/sentences"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	driver, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	artifacts, err := a.artifactStore()
	if err != nil {
		return err
	}

	h := api.NewHandler(sentences.New(driver, artifacts, a.log), artifacts, a.log)
	if tok, err := scoring.NewKagomeTokenizer(); err != nil {
		a.log.Warn("japanese scoring unavailable", "err", err)
	} else {
		h.RegisterScorer("ja", scoring.New(tok))
	}

	router := h.Routes()
	if a.cfg.Artifacts.Backend == config.ArtifactsDisk {
		prefix := a.cfg.Artifacts.URLPrefix + "/"
		router.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(a.cfg.Artifacts.Dir))))
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", srv.Addr, "db", a.cfg.Database.Driver, "artifacts", a.cfg.Artifacts.Backend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
