// ledgerctl is an operator CLI for ledger maintenance tasks that have no
// place in the HTTP API workflow: manual stock corrections, balance checks,
// and document cleanup.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/config"
	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/core"
	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/db"
)

type services struct {
	pool     *pgxpool.Pool
	stock    core.StockService
	accounts core.AccountService
	partners core.PartnerService
	engine   core.DocumentEngine
}

func connect(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	stock := core.NewStockService(pool)
	accounts := core.NewAccountService(pool)
	partners := core.NewPartnerService(pool)
	engine := core.NewDocumentEngine(pool, stock, accounts, partners, cfg.RetailPartnerID, cfg.GenericSupplierID)
	return &services{pool: pool, stock: stock, accounts: accounts, partners: partners, engine: engine}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tooling for the document ledgers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(stockCmd(), balancesCmd(), partnerCmd(), docCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func stockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Manual stock adjustments",
	}

	var reason, actedBy string
	adjust := &cobra.Command{
		Use:   "adjust <item-id> <delta>",
		Short: "Apply a signed quantity correction to an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			delta, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta %q", args[1])
			}

			ctx := cmd.Context()
			svc, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.pool.Close()

			movement, err := svc.stock.AdjustManual(ctx, itemID, delta, reason, actedBy)
			if err != nil {
				return err
			}
			fmt.Printf("movement %d: item %d %s -> %s\n",
				movement.ID, movement.ItemID, movement.QtyBefore.StringFixed(2), movement.QtyAfter.StringFixed(2))
			return nil
		},
	}
	adjust.Flags().StringVar(&reason, "reason", "", "why the correction is needed")
	adjust.Flags().StringVar(&actedBy, "user", "ledgerctl", "operator name for the audit trail")
	_ = adjust.MarkFlagRequired("reason")

	reverse := &cobra.Command{
		Use:   "reverse <movement-id>",
		Short: "Undo a manual stock movement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movementID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid movement id %q", args[0])
			}

			ctx := cmd.Context()
			svc, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.pool.Close()

			if err := svc.stock.ReverseManualMovement(ctx, movementID); err != nil {
				return err
			}
			fmt.Printf("movement %d reversed\n", movementID)
			return nil
		},
	}

	cmd.AddCommand(adjust, reverse)
	return cmd
}

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Print all cash/bank account balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.pool.Close()

			accounts, err := svc.accounts.ListAccounts(ctx)
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Printf("%-10s %-24s %s %s\n", a.Code, a.Name, a.Balance.StringFixed(2), a.Currency)
			}
			return nil
		},
	}
}

func partnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partner",
		Short: "Partner ledger queries",
	}

	balance := &cobra.Command{
		Use:   "balance <partner-id>",
		Short: "Print a partner's running balance (positive: they owe us)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid partner id %q", args[0])
			}

			ctx := cmd.Context()
			svc, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.pool.Close()

			partner, err := svc.partners.GetPartner(ctx, partnerID)
			if err != nil {
				return err
			}
			balance, err := svc.partners.Balance(ctx, partnerID)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s): %s\n", partner.Name, partner.Kind, balance.StringFixed(2))
			return nil
		},
	}

	cmd.AddCommand(balance)
	return cmd
}

func docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Document maintenance",
	}

	del := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document, reversing all its ledger effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id %q", args[0])
			}

			ctx := cmd.Context()
			svc, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.pool.Close()

			if err := svc.engine.DeleteDocument(ctx, documentID); err != nil {
				return err
			}
			fmt.Printf("document %d deleted\n", documentID)
			return nil
		},
	}

	nextNumber := &cobra.Command{
		Use:   "next-number <kind>",
		Short: "Allocate the next document number for a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.pool.Close()

			number, err := svc.engine.NextNumber(ctx, core.DocumentKind(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(number)
			return nil
		},
	}

	cmd.AddCommand(del, nextNumber)
	return cmd
}
