package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/atdata/ishare/internal/wallet"
)

const adminUsage = `Usage: ishare admin <command> [flags]

Commands:
  dashboard     aggregate statistics
  users         list user records (paged)
  transactions  list transaction records (paged)
  credit        credit ISHARE to a user
  debit         debit ISHARE from a user
  bulk-credit   credit many users from a CSV file (email,amountMB,reason)
  update-user   update a user record
  deactivate    deactivate a user
`

func (a *app) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, adminUsage)

		return errors.New("missing admin command")
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "dashboard":
		return a.adminDashboard(ctx)
	case "users":
		return a.adminUsers(ctx, rest)
	case "transactions":
		return a.adminTransactions(ctx, rest)
	case "credit":
		return a.adminCredit(ctx, rest, false)
	case "debit":
		return a.adminCredit(ctx, rest, true)
	case "bulk-credit":
		return a.adminBulkCredit(ctx, rest)
	case "update-user":
		return a.adminUpdateUser(ctx, rest)
	case "deactivate":
		return a.adminDeactivate(ctx, rest)
	default:
		fmt.Fprint(os.Stderr, adminUsage)

		return fmt.Errorf("unknown admin command %q", cmd)
	}
}

func (a *app) adminDashboard(ctx context.Context) error {
	stats, err := a.api.Dashboard(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Users:       %d total, %d active\n", stats.Users.Total, stats.Users.Active)
	fmt.Printf("Loads:       %d (%.1f GB loaded)\n", stats.Ishare.TotalLoads, float64(stats.Ishare.TotalDataLoaded)/1024)
	fmt.Printf("Data used:   %.1f GB\n", float64(stats.Ishare.TotalDataUsed)/1024)
	fmt.Printf("Remaining:   %.1f GB\n", float64(stats.Ishare.RemainingData)/1024)

	if len(stats.RecentActivity) > 0 {
		fmt.Println("Recent activity:")

		for _, tx := range stats.RecentActivity {
			fmt.Printf("  %s  %-8s  %6d MB  %s\n",
				tx.CreatedAt.Format("2006-01-02 15:04"), tx.Type, tx.AmountMB, tx.UserEmail)
		}
	}

	return nil
}

func (a *app) adminUsers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin users", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	users, pagination, err := a.api.Users(ctx, *page, *limit)
	if err != nil {
		return err
	}

	for _, u := range users {
		status := "active"
		if !u.IsActive {
			status = "inactive"
		}

		fmt.Printf("%s  %-10s  %-8s  %8d MB  %s <%s>\n",
			u.ID, u.Role, status, u.IshareBalance, u.Name, u.Email)
	}

	fmt.Printf("Page %d of %d (%d users)\n", pagination.Page, pagination.TotalPages, pagination.Total)

	return nil
}

func (a *app) adminTransactions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin transactions", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	txType := fs.String("type", "all", "all, load, debit, transfer or usage")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	txns, pagination, err := a.api.Transactions(ctx, *page, *limit, *txType)
	if err != nil {
		return err
	}

	for _, tx := range txns {
		fmt.Printf("%s  %-8s  %6d MB  %-30s  %s\n",
			tx.CreatedAt.Format("2006-01-02 15:04"), tx.Type, tx.AmountMB, tx.UserEmail, tx.Description)
	}

	fmt.Printf("Page %d of %d (%d transactions)\n", pagination.Page, pagination.TotalPages, pagination.Total)

	return nil
}

func (a *app) adminCredit(ctx context.Context, args []string, debit bool) error {
	name := "admin credit"
	if debit {
		name = "admin debit"
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "user email")
	mb := fs.Int64("mb", 0, "amount in megabytes")
	reason := fs.String("reason", "", "reason")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	req := wallet.CreditRequest{UserEmail: *email, AmountMB: *mb, Reason: *reason}

	if debit {
		err = a.api.DebitIshare(ctx, req)
	} else {
		err = a.api.CreditIshare(ctx, req)
	}

	if err != nil {
		return err
	}

	verb := "Credited"
	if debit {
		verb = "Debited"
	}

	fmt.Printf("%s %d MB for %s\n", verb, *mb, *email)

	return nil
}

// adminBulkCredit reads email,amountMB[,reason] rows, one per line, the same
// shape the admin screen accepted in its textarea.
func (a *app) adminBulkCredit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin bulk-credit", flag.ContinueOnError)
	file := fs.String("file", "", "CSV file (email,amountMB,reason), - for stdin")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	in := os.Stdin

	if *file != "" && *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("open credits file: %w", err)
		}
		defer f.Close()

		in = f
	}

	var credits []wallet.CreditRequest

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ",", 3)
		if len(parts) < 2 {
			return fmt.Errorf("bad credit row %q: want email,amountMB[,reason]", line)
		}

		amount, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return fmt.Errorf("bad amount in row %q: %w", line, err)
		}

		reason := "Bulk credit"
		if len(parts) == 3 {
			reason = strings.TrimSpace(parts[2])
		}

		credits = append(credits, wallet.CreditRequest{
			UserEmail: strings.TrimSpace(parts[0]),
			AmountMB:  amount,
			Reason:    reason,
		})
	}

	err = scanner.Err()
	if err != nil {
		return fmt.Errorf("read credits: %w", err)
	}

	if len(credits) == 0 {
		return errors.New("no credit rows")
	}

	result, err := a.api.BulkCreditIshare(ctx, credits)
	if err != nil {
		return err
	}

	fmt.Printf("Bulk credit: %d successful, %d failed\n", len(result.Results), len(result.Errors))

	for _, e := range result.Errors {
		fmt.Printf("  failed: %s\n", e)
	}

	return nil
}

func (a *app) adminUpdateUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin update-user", flag.ContinueOnError)
	id := fs.String("id", "", "user id")
	name := fs.String("name", "", "new display name")
	email := fs.String("email", "", "new email")
	role := fs.String("role", "", "new role")
	active := fs.String("active", "", "true or false")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *id == "" {
		return errors.New("-id is required")
	}

	var update wallet.UserUpdate

	if *name != "" {
		update.Name = name
	}

	if *email != "" {
		update.Email = email
	}

	if *role != "" {
		r := wallet.Role(*role)
		update.Role = &r
	}

	if *active != "" {
		b, err := strconv.ParseBool(*active)
		if err != nil {
			return fmt.Errorf("parse -active: %w", err)
		}

		update.IsActive = &b
	}

	err = a.api.UpdateUser(ctx, *id, update)
	if err != nil {
		return err
	}

	fmt.Println("User updated")

	return nil
}

func (a *app) adminDeactivate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin deactivate", flag.ContinueOnError)
	id := fs.String("id", "", "user id")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *id == "" {
		return errors.New("-id is required")
	}

	err = a.api.DeactivateUser(ctx, *id)
	if err != nil {
		return err
	}

	fmt.Println("User deactivated")

	return nil
}
