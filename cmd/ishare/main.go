// ishare is the command-line front end for the AT ISHARE wallet backend:
// log in, check the balance, send data to a phone number, inspect history,
// manage the API key and run admin actions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/atdata/ishare/internal/client"
	"github.com/atdata/ishare/internal/config"
	"github.com/atdata/ishare/internal/infra/logging"
	"github.com/atdata/ishare/internal/session"
	"github.com/atdata/ishare/internal/transfer"
	"github.com/atdata/ishare/internal/wallet"
)

const usage = `Usage: ishare <command> [flags]

Commands:
  register     create an account and log in
  login        authenticate and store the session
  logout       clear the stored session
  profile      show the account (refreshes the cached snapshot)
  balance      show the current balance
  send         transfer data to a phone number
  transfers    list transfer history
  use          consume data from your own allotment
  usage        list data-usage history
  loads        list administrative credits
  apikey       show or rotate the API key
  watch        re-fetch the balance on an interval
  admin        administrative subcommands (run "ishare admin" for a list)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)

		return errors.New("missing command")
	}

	logging.SetupText(0)

	cfg := new(config.ClientConfig)

	err := config.Load(cfg)
	if err != nil {
		return err
	}

	sessionPath := cfg.SessionFile
	if sessionPath == "" {
		sessionPath, err = session.DefaultPath()
		if err != nil {
			return err
		}
	}

	store := session.NewStore(sessionPath)
	api := client.New(client.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		APIKey:  cfg.APIKey,
	}, store)

	app := &app{api: api, store: store}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "register":
		return app.register(ctx, rest)
	case "login":
		return app.login(ctx, rest)
	case "logout":
		return app.logout()
	case "profile":
		return app.profile(ctx)
	case "balance":
		return app.balance(ctx)
	case "send":
		return app.send(ctx, rest)
	case "transfers":
		return app.transfers(ctx, rest)
	case "use":
		return app.useData(ctx, rest)
	case "usage":
		return app.usageHistory(ctx)
	case "loads":
		return app.loads(ctx)
	case "apikey":
		return app.apiKey(ctx, rest)
	case "watch":
		return app.watch(ctx, rest)
	case "admin":
		return app.admin(ctx, rest)
	case "help", "-h", "--help":
		fmt.Print(usage)

		return nil
	default:
		fmt.Fprint(os.Stderr, usage)

		return fmt.Errorf("unknown command %q", cmd)
	}
}

type app struct {
	api   *client.Client
	store *session.Store
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	phone := fs.String("phone", "", "phone number (10 digits)")
	role := fs.String("role", "", "account role (default buyer)")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	acct, err := a.api.Register(ctx, client.RegisterRequest{
		Name:        *name,
		Email:       *email,
		Password:    *password,
		PhoneNumber: digitsOnly(*phone),
		Role:        wallet.Role(*role),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Registered and logged in as %s (%s)\n", acct.Name, acct.Email)

	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	acct, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s), balance %d MB\n", acct.Name, acct.Email, acct.IshareBalance)

	return nil
}

func (a *app) logout() error {
	if !a.api.IsAuthenticated() {
		fmt.Println("Not logged in")

		return nil
	}

	err := a.api.Logout()
	if err != nil {
		return err
	}

	fmt.Println("Logged out")

	return nil
}

func (a *app) profile(ctx context.Context) error {
	acct, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Name:    %s\n", acct.Name)
	fmt.Printf("Email:   %s\n", acct.Email)
	fmt.Printf("Phone:   %s\n", formatPhoneNumber(acct.PhoneNumber))
	fmt.Printf("Role:    %s\n", acct.Role)
	fmt.Printf("Balance: %d MB (%.2f GB)\n", acct.IshareBalance, float64(acct.IshareBalance)/1024)
	fmt.Printf("Active:  %v\n", acct.IsActive)

	return nil
}

func (a *app) balance(ctx context.Context) error {
	bal, err := a.api.Balance(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%d MB (%s GB)\n", bal.IshareBalance, bal.BalanceInGB)

	return nil
}

// send runs the full coordinator flow. The cached balance feeds the local
// pre-check; the backend stays authoritative, and the snapshot is refreshed
// from /user/profile afterwards instead of trusting the optimistic value.
func (a *app) send(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	to := fs.String("to", "", "recipient phone number (10 digits)")
	mb := fs.String("mb", "", "amount in megabytes")
	note := fs.String("note", "", "optional note (max 200 characters)")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	currentBalance := transfer.BalanceUnknown

	sess, err := a.store.Load()
	if err == nil {
		currentBalance = sess.Account.IshareBalance
	}

	coord := transfer.New(a.api)

	result, newBalance, err := coord.Send(ctx, digitsOnly(*to), *mb, *note, currentBalance)
	if err != nil {
		return err
	}

	fmt.Printf("Sent %d MB to %s (transfer %s, %s)\n",
		result.Transfer.AmountMB, formatPhoneNumber(digitsOnly(*to)), result.Transfer.ID, result.Transfer.Status)
	fmt.Printf("New balance: %d MB\n", newBalance)

	// Refresh the snapshot so the next pre-check uses server truth.
	_, err = a.api.Profile(ctx)
	if err != nil {
		return fmt.Errorf("transfer succeeded but refresh failed: %w", err)
	}

	return nil
}

func (a *app) transfers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transfers", flag.ContinueOnError)
	filter := fs.String("type", "all", "all, sent or received")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	transfers, err := a.api.Transfers(ctx, client.TransferFilter(*filter))
	if err != nil {
		return err
	}

	if len(transfers) == 0 {
		fmt.Println("No transfers")

		return nil
	}

	for _, t := range transfers {
		line := fmt.Sprintf("%s  %-8s  %6d MB  %s  %s",
			t.CreatedAt.Format("2006-01-02 15:04"), t.Type, t.AmountMB,
			formatPhoneNumber(t.RecipientPhoneNumber), t.Status)
		if t.Note != "" {
			line += "  " + t.Note
		}

		fmt.Println(line)
	}

	return nil
}

func (a *app) useData(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("use", flag.ContinueOnError)
	mb := fs.Int64("mb", 0, "amount in megabytes")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	remaining, err := a.api.UseData(ctx, *mb)
	if err != nil {
		return err
	}

	fmt.Printf("Used %d MB, remaining %d MB\n", *mb, remaining)

	_, err = a.api.Profile(ctx)
	if err != nil {
		return fmt.Errorf("refresh after use-data: %w", err)
	}

	return nil
}

func (a *app) usageHistory(ctx context.Context) error {
	records, err := a.api.UsageHistory(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No usage records")

		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %6d MB\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.AmountMB)
	}

	return nil
}

func (a *app) loads(ctx context.Context) error {
	records, err := a.api.LoadHistory(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No loads")

		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %6d MB  %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.AmountMB, rec.Reason)
	}

	return nil
}

func (a *app) apiKey(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("apikey", flag.ContinueOnError)
	regenerate := fs.Bool("regenerate", false, "rotate the API key")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *regenerate {
		key, err := a.api.RegenerateAPIKey(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("New API key: %s\n", key)

		return nil
	}

	acct, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("API key: %s\n", maskAPIKey(acct.APIKey))

	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder

	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func formatPhoneNumber(phone string) string {
	if len(phone) != 10 {
		return phone
	}

	return fmt.Sprintf("(%s) %s-%s", phone[:3], phone[3:6], phone[6:])
}

func maskAPIKey(key string) string {
	if len(key) < 16 {
		return key
	}

	return key[:8] + strings.Repeat("*", len(key)-16) + key[len(key)-8:]
}
