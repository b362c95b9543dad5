// Command nestrelay runs the relay's WebSocket and HTTP surface.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	"nestrelay.dev/pkg/config"
	"nestrelay.dev/pkg/relay"
	"nestrelay.dev/pkg/utils/apputil"
	"nestrelay.dev/pkg/utils/chk"
	"nestrelay.dev/pkg/utils/interrupt"
	"nestrelay.dev/pkg/utils/log"
	"nestrelay.dev/pkg/version"
)

func main() {
	cfg, err := config.New()
	if chk.E(err) {
		os.Exit(1)
	}
	log.SetLogLevel(cfg.LogLevel)
	log.I.F("%s %s starting", cfg.AppName, version.V)

	if os.Getenv("NESTR_PPROF") == "true" {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	if chk.E(apputil.EnsureDir(cfg.DataDir)) {
		os.Exit(1)
	}

	relayURL := "ws://" + cfg.Listen
	r, err := relay.New(cfg, relayURL)
	if chk.E(err) {
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	interrupt.AddHandler(func() {
		log.I.Ln("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownGraceSeconds)*time.Second)
		defer cancel()
		chk.E(srv.Shutdown(ctx))
		chk.E(r.Close())
	})

	var g errgroup.Group
	g.Go(func() error {
		log.I.F("listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err = g.Wait(); chk.E(err) {
		os.Exit(1)
	}
}
