// Command glbview serves the model viewer backend.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-glb/config"
	"github.com/Carmen-Shannon/oxy-glb/engine/loader"
	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"
	"github.com/Carmen-Shannon/oxy-glb/engine/viewer"
	"github.com/Carmen-Shannon/oxy-glb/status"
	"github.com/Carmen-Shannon/oxy-glb/web"
)

func main() {
	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "Path to viewer yaml config")
	flag.StringVar(&addr, "addr", "", "Address of server, overrides the config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	registry := loader.NewDefaultExtensionRegistry()
	for _, name := range cfg.DisabledExtensions {
		registry.Unregister(name)
	}

	prof := profiler.NewProfiler(!cfg.Debug)
	l := loader.NewLoader(loader.BackendTypeGLTF,
		loader.WithExtensionRegistry(registry),
		loader.WithSmoothNormals(cfg.SmoothNormals),
		loader.WithGenerateTangents(cfg.GenerateTangents),
		loader.WithWorkers(cfg.Workers),
		loader.WithProfiler(prof),
		loader.WithDebug(cfg.Debug),
	)
	if len(cfg.Preload) > 0 {
		if _, err := l.LoadAll(cfg.Preload); err != nil {
			log.Printf("[Main] Preload incomplete: %v", err)
		}
	}

	hub := status.NewHub()
	session := viewer.NewSession(
		viewer.WithLoader(l),
		viewer.WithStatus(hub),
		viewer.WithDefaultModel(cfg.DefaultModel),
	)
	// A failed default load is logged by the session; the server still starts empty.
	_ = session.LoadDefault()

	srv := web.NewServer(cfg, session, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Main] Shutdown: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	s := prof.Summary()
	log.Printf("[Main] %d loads (%d failed), %d bytes in %v", s.Loads, s.Failures, s.Bytes, s.TotalTime)
}
