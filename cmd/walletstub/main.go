// walletstub runs the in-memory stand-in for the ISHARE wallet backend.
// Point cmd/ishare (or any API-key integration) at it during development;
// all state is lost on exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/atdata/ishare/internal/config"
	"github.com/atdata/ishare/internal/infra/logging"
	"github.com/atdata/ishare/internal/stubserver"
	"github.com/atdata/ishare/internal/wallet"
	"github.com/atdata/ishare/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running walletstub: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(config.StubConfig)

	err := config.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(slog.Level(cfg.LogLevel))

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	store := stubserver.NewStore()

	err = seed(store)
	if err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	srv := stubserver.NewHTTPServer(cfg.Port, stubserver.New(store, cfg.JWTSecret, cfg.TokenTTL))

	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down stub server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("walletstub started", "port", cfg.Port)

	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

// seed creates a known admin and two funded demo accounts so the CLI works
// against a fresh stub with no setup.
func seed(store *stubserver.Store) error {
	admin, err := store.Register("Admin", "admin@ishare.local", "admin123", "0200000000", wallet.RoleAdmin)
	if err != nil {
		return err
	}

	alice, err := store.Register("Alice Mensah", "alice@ishare.local", "alice123", "0244111222", wallet.RoleBuyer)
	if err != nil {
		return err
	}

	bob, err := store.Register("Bob Tetteh", "bob@ishare.local", "bob123", "0244333444", wallet.RoleBuyer)
	if err != nil {
		return err
	}

	err = store.Credit(alice.Email, 5120, "seed balance")
	if err != nil {
		return err
	}

	err = store.Credit(bob.Email, 2048, "seed balance")
	if err != nil {
		return err
	}

	slog.Info("seeded demo accounts",
		"admin", admin.Email,
		"users", []string{alice.Email, bob.Email},
	)

	return nil
}
