package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	zlog "github.com/rs/zerolog/log"
	"github.com/trovity/go-portal-server/identity/oidcadapter"
	"github.com/trovity/go-portal-server/internal/config"
	"github.com/trovity/go-portal-server/portal/repofake"
	"github.com/trovity/go-portal-server/realm"
	"github.com/trovity/go-portal-server/server"
	"github.com/trovity/go-portal-server/session"
	"github.com/trovity/go-portal-server/storage"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	portalServer, err := buildServer(c)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}
	defer portalServer.Close()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: portalServer}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config) (*server.Server, error) {
	store := storage.NewInMemoryStore()
	resolver := realm.NewResolver(store)

	adapter, err := oidcadapter.New(context.Background(), oidcadapter.Config{
		IssuerURL:    c.GetIssuerURL(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetRedirectURL(),
	}, store, func(url string) {
		// Redirect-based flows are driven by the HTTP handlers; a navigation
		// requested outside a request cycle can only be logged.
		zlog.Info().Str("url", url).Msg("Login navigation requested outside a request")
	})
	if err != nil {
		return nil, fmt.Errorf("oidcadapter.New: %w", err)
	}

	fetcher := session.NewHTTPProfileFetcher(c.GetProfileURL(), nil)
	sessions, err := session.NewStore(adapter, fetcher)
	if err != nil {
		return nil, fmt.Errorf("session.NewStore: %w", err)
	}

	return server.New(c, server.Deps{
		Idp:      adapter,
		AuthFlow: adapter,
		Sessions: sessions,
		Resolver: resolver,
		Storage:  store,
		Portal:   repofake.NewSeededPortalRepo("demo-user"),
	})
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
