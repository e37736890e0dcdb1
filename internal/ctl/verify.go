package ctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"dungeond/internal/challenge"
	"dungeond/internal/journal"
)

func verifyCmd(opts *options) *cobra.Command {
	var session string
	var nonce uint64
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an archived session for fraud",
		Long: `Verify re-executes archived turns: actor scheduling, deterministic
provider choices and state transitions. Any divergence from the archive is
reported as fraud with both sides of the evidence. With --nonce only that
turn is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.DB.Close()

			verifier := challenge.NewVerifier()
			if cmd.Flags().Changed("nonce") {
				return verifyOne(cmd, opts, store, verifier, session, nonce)
			}
			report, err := verifier.VerifySession(cmd.Context(), store, session)
			if err != nil {
				return err
			}
			if *opts.jsonOut {
				if err := opts.print(report); err != nil {
					return err
				}
			} else {
				fmt.Printf("session %s: %d turns, %d re-executed\n", report.SessionID, report.Turns, report.Checked)
				for _, v := range report.Frauds {
					fmt.Printf("FRAUD at nonce %d (entity %d): %s\n", v.Nonce, v.Entity, v.Reason)
				}
				if report.Clean() {
					fmt.Println("no fraud found")
				}
			}
			if !report.Clean() {
				return fmt.Errorf("fraud detected in %d turn(s)", len(report.Frauds))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id")
	cmd.Flags().Uint64Var(&nonce, "nonce", 0, "verify only the turn at this nonce")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func verifyOne(cmd *cobra.Command, opts *options, store *journal.Store, verifier *challenge.Verifier, session string, nonce uint64) error {
	ctx := cmd.Context()
	rec, err := store.Turn(ctx, session, nonce)
	if err != nil {
		return err
	}
	pre, err := store.Snapshot(ctx, session, nonce-1)
	if err != nil {
		return err
	}
	post, err := store.Snapshot(ctx, session, nonce)
	if err != nil {
		return err
	}
	verdict, err := verifier.VerifyTurn(ctx, pre, rec)
	if err != nil {
		return err
	}
	if !verdict.Fraud {
		tv, err := verifier.VerifyTransition(pre, rec, post)
		if err != nil {
			return err
		}
		if tv.Fraud {
			verdict = tv
		}
	}
	if *opts.jsonOut {
		if err := opts.print(verdict); err != nil {
			return err
		}
	} else if verdict.Fraud {
		fmt.Printf("FRAUD at nonce %d (entity %d): %s\n", verdict.Nonce, verdict.Entity, verdict.Reason)
	} else {
		fmt.Printf("turn %d verified (choice re-executed: %v), no fraud\n", nonce, verdict.Checked)
	}
	if verdict.Fraud {
		return fmt.Errorf("fraud detected at nonce %d", nonce)
	}
	return nil
}
