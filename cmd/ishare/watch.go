package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/atdata/ishare/internal/client"
)

// watch polls the balance on a fixed interval. The timer lives here in the
// host command, not inside the client or coordinator; the core only exposes
// the explicit refresh call.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", 30*time.Second, "refresh interval")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *interval < time.Second {
		return errors.New("interval must be at least 1s")
	}

	show := func() error {
		bal, err := a.api.Balance(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%s  %d MB (%s GB)\n", time.Now().Format("15:04:05"), bal.IshareBalance, bal.BalanceInGB)

		return nil
	}

	err = show()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err = show()
			if err != nil {
				// A flaky network tick is not fatal while watching; an auth
				// rejection is.
				if client.Unauthorized(err) {
					return err
				}

				fmt.Printf("%s  refresh failed: %v\n", time.Now().Format("15:04:05"), err)
			}
		}
	}
}
