package ctl

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dungeond/internal/journal"
	"dungeond/internal/provider"
	"dungeond/internal/runtime"
	"dungeond/internal/state"
	"dungeond/pkg/types"
)

func replayCmd(opts *options) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-drive a session from its recorded actions",
		Long: `Replay rebuilds the session offline: interactive entities are fed their
recorded actions through replay sources, AI entities recompute their own, and
the resulting state digest is compared against the archive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.DB.Close()

			ctx := cmd.Context()
			initial, err := store.Snapshot(ctx, session, 0)
			if err != nil {
				return err
			}
			turns, err := store.Turns(ctx, session)
			if err != nil {
				return err
			}

			// Recorded actions of interactive entities, commit order.
			interactive := make(map[types.EntityID]bool)
			for _, a := range initial.Actors {
				if a.Provider.IsInteractive() {
					interactive[a.ID] = true
				}
			}
			var recorded []types.Action
			for _, t := range turns {
				if interactive[t.Entity] {
					recorded = append(recorded, t.Action)
				}
			}
			log := provider.NewReplayLog(recorded)

			// The replayed session journals into a scratch directory; the
			// real archive stays untouched.
			scratchDir, err := os.MkdirTemp("", "dungeond-replay-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(scratchDir)
			scratch, err := journal.Open(scratchDir)
			if err != nil {
				return err
			}
			defer scratch.DB.Close()

			rt, err := runtime.New(runtime.Config{Initial: initial, Store: scratch})
			if err != nil {
				return err
			}
			defer rt.Close()
			seen := make(map[types.ProviderKind]bool)
			for _, a := range initial.Actors {
				if a.Provider.IsInteractive() && !seen[a.Provider] {
					seen[a.Provider] = true
					if err := rt.RegisterProvider(a.Provider, log); err != nil {
						return err
					}
				}
			}
			if err := rt.BindFromState(); err != nil {
				return err
			}

			for i := 0; i < len(turns); i++ {
				if _, err := rt.RunTurn(ctx); err != nil {
					return fmt.Errorf("replay turn %d: %w", i+1, err)
				}
			}

			final := rt.QueryState()
			got, err := state.Digest(final)
			if err != nil {
				return err
			}
			archived, err := store.Snapshot(ctx, session, final.Nonce)
			if err != nil {
				return err
			}
			want, err := state.Digest(archived)
			if err != nil {
				return err
			}
			match := got == want

			if *opts.jsonOut {
				return opts.print(map[string]any{
					"session_id": session,
					"turns":      len(turns),
					"nonce":      final.Nonce,
					"match":      match,
					"replayed":   got,
					"archived":   want,
				})
			}
			fmt.Printf("replayed %d turns of %s to nonce %d\n", len(turns), session, final.Nonce)
			if !match {
				fmt.Printf("digest mismatch: replayed %s, archived %s\n", got, want)
				return fmt.Errorf("replay diverged from archive")
			}
			fmt.Println("digests match")
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
