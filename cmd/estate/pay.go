package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/estate-checkout/internal/checkout"
	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

func integrationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "integrations",
		Short: "List the payment methods checkout accepts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := a.payments.GetActiveIntegrations(cmd.Context())
			if !res.Success {
				return errors.New(res.Message)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCURRENCY")
			for _, in := range res.Data {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", in.ID, in.Name, in.Currency)
			}
			return tw.Flush()
		},
	}
}

func payCmd(a *app) *cobra.Command {
	var (
		amount, currency, integration, propertyID string
		extended, noWait                          bool
	)

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Start a payment and wait for it to settle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if err := a.requireSession(ctx); err != nil {
				return err
			}
			req, err := a.paymentRequest(ctx, amount, currency, integration, propertyID)
			if err != nil {
				return err
			}

			profile := checkout.PollProfile{Interval: a.cfg.PollInterval, MaxAttempts: uint(a.cfg.PollMaxAttempts)}
			if extended {
				profile = checkout.ExtendedPolling
			}
			ctrl := checkout.NewController(a.payments, checkout.WithPollProfile(profile))
			defer ctrl.Close()

			created, err := ctrl.Submit(ctx, req)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Payment %s created.\n", created.Reference)
			fmt.Fprintf(out, "Complete it at: %s\n", created.RedirectURL)
			if noWait {
				fmt.Fprintf(out, "Check on it later with `estate status %s`\n", created.Reference)
				return nil
			}

			keepAliveCtx, stopKeepAlive := context.WithCancel(ctx)
			defer stopKeepAlive()
			go a.session.KeepAlive(keepAliveCtx, a.cfg.SessionKeepAlive)

			poll, err := ctrl.StartPolling(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Waiting for confirmation (checking every %s, up to %d times)...\n", profile.Interval, profile.MaxAttempts)

			outcome, ok, err := poll.Wait(ctx)
			if err != nil || !ok {
				fmt.Fprintf(out, "Stopped waiting. Check on it later with `estate status %s`\n", created.Reference)
				return nil
			}
			return reportOutcome(out, outcome)
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount to pay")
	cmd.Flags().StringVar(&currency, "currency", string(domain.CurrencyUSD), "currency (USD or ZWD)")
	cmd.Flags().StringVar(&integration, "integration", "", "integration id from `estate integrations`")
	cmd.Flags().StringVar(&propertyID, "property", "", "pay the viewing fee of this property instead of --amount")
	cmd.Flags().BoolVar(&extended, "extended", false, "wait twice as long for confirmation")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "print the payment link and exit")
	_ = cmd.MarkFlagRequired("integration")
	cmd.MarkFlagsMutuallyExclusive("amount", "property")
	return cmd
}

func (a *app) paymentRequest(ctx context.Context, amount, currency, integration, propertyID string) (domain.PaymentRequest, error) {
	cur := domain.Currency(strings.ToUpper(currency))

	if propertyID != "" {
		p, err := a.listings.Get(ctx, domain.ID(propertyID))
		if err != nil {
			return domain.PaymentRequest{}, err
		}
		return checkout.ViewingFeeRequest(*p, cur, integration)
	}

	if amount == "" {
		return domain.PaymentRequest{}, errors.New("one of --amount or --property is required")
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.PaymentRequest{}, fmt.Errorf("--amount: %w", err)
	}
	return domain.PaymentRequest{Amount: amt, Currency: cur, IntegrationID: integration}, nil
}

func reportOutcome(out io.Writer, o checkout.Outcome) error {
	switch o.State {
	case checkout.StateSettled:
		fmt.Fprintf(out, "Payment %s.\n", strings.ToLower(string(o.Status)))
		if o.Status != domain.PaymentStatusPaid {
			return fmt.Errorf("payment %s", strings.ToLower(string(o.Status)))
		}
		return nil
	case checkout.StateTimedOut:
		fmt.Fprintln(out, o.Message)
		return nil
	default:
		return fmt.Errorf("payment failed: %s", o.Message)
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <reference>",
		Short: "Show the current status of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			res := a.payments.GetPaymentDetails(cmd.Context(), args[0])
			if !res.Success {
				return errors.New(res.Message)
			}

			p := res.Data
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reference: %s\n", p.Reference)
			fmt.Fprintf(out, "Status:    %s\n", p.Status)
			fmt.Fprintf(out, "Amount:    %s %s\n", p.Amount.StringFixed(2), p.Currency)
			if !p.CreatedAt.IsZero() {
				fmt.Fprintf(out, "Created:   %s\n", p.CreatedAt.Local().Format(time.RFC1123))
			}
			if !p.Status.IsTerminal() && p.RedirectURL != "" {
				fmt.Fprintf(out, "Pay at:    %s\n", p.RedirectURL)
			}
			return nil
		},
	}
}
