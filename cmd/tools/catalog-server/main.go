// Command catalog-server serves the conversion catalog over HTTP: tsweb
// debug pages, a tailsql console and JSON endpoints for recorded runs.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/nusconv/internal/catalog"
	"github.com/banshee-data/nusconv/internal/timeutil"
)

var (
	dbPath = flag.String("db", "nusconv_catalog.db", "Path to the conversion catalog")
	listen = flag.String("listen", "localhost:8090", "Listen address")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cat, err := catalog.Open(*dbPath, timeutil.RealClock{})
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}
	defer cat.Close()

	mux := http.NewServeMux()
	if err := cat.AttachAdminRoutes(mux); err != nil {
		log.Fatalf("failed to attach admin routes: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr: *listen,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		}),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	log.Printf("serving catalog %s on http://%s/debug/", *dbPath, *listen)

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
}
