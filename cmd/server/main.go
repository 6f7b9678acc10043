// Command server runs the in-memory TaskFlow backend for local development
// against the CLI. State is lost on exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/taskflow-client/internal/config"
	"github.com/jrsteele09/taskflow-client/internal/fakebackend"
	"github.com/jrsteele09/taskflow-client/internal/logging"
	"github.com/jrsteele09/taskflow-client/users"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	logger := logging.New(c.GetLogLevel(), c.GetEnv())
	logging.SetGlobal(logger)
	displayAppname(c.GetAppName() + " dev")

	backend := fakebackend.New(fakebackend.WithLogger(logger), fakebackend.WithEnv(c.GetEnv()))
	seedAccounts(backend)

	server := &http.Server{
		Addr:              config.GetEnv("TASKFLOW_DEV_ADDR", ":8000"),
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

// seedAccounts creates one account per role, all sharing the password from
// TASKFLOW_DEV_PASSWORD.
func seedAccounts(backend *fakebackend.Server) {
	password := config.GetEnv("TASKFLOW_DEV_PASSWORD", "password123")
	for _, role := range users.Roles() {
		email := string(role) + "@taskflow.local"
		backend.SeedUser(email, password, role)
		log.Info().Str("email", email).Str("role", role.String()).Msg("Seeded account")
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
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
