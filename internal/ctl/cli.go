// Package ctl implements the dungeonctl command tree: offline inspection,
// replay and fraud verification of archived sessions. Everything here works
// against the journal directly; no running daemon is required.
package ctl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dungeond/internal/common/fsutil"
	"dungeond/internal/journal"
)

// BuildRootCmd constructs the Cobra command tree.
func BuildRootCmd() *cobra.Command {
	var dataDir string
	var jsonOut bool

	root := &cobra.Command{
		Use:           "dungeonctl",
		Short:         "Inspect, replay and verify archived dungeon sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "~/.dungeond", "Directory holding the session journal")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output JSON")

	opts := &options{dataDir: &dataDir, jsonOut: &jsonOut}
	root.AddCommand(sessionsCmd(opts))
	root.AddCommand(logCmd(opts))
	root.AddCommand(replayCmd(opts))
	root.AddCommand(verifyCmd(opts))

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	root.AddCommand(completionCmd)

	return root
}

type options struct {
	dataDir *string
	jsonOut *bool
}

func (o *options) openStore() (*journal.Store, error) {
	dir, err := fsutil.ExpandHome(*o.dataDir)
	if err != nil {
		return nil, err
	}
	return journal.Open(dir)
}

func (o *options) print(v any) error {
	enc := json.NewEncoder(os.Stdout)
	if !*o.jsonOut {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func sessionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List archived sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.DB.Close()
			infos, err := store.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			if *opts.jsonOut {
				return opts.print(infos)
			}
			if len(infos) == 0 {
				fmt.Println("no sessions")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%s\tnonce=%d\n", info.SessionID, info.Nonce)
			}
			return nil
		},
	}
}

func logCmd(opts *options) *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Turn log",
	}
	log.AddCommand(logTailCmd(opts))
	return log
}

func logTailCmd(opts *options) *cobra.Command {
	var session string
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent turns of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.DB.Close()
			turns, err := store.Tail(cmd.Context(), session, n)
			if err != nil {
				return err
			}
			if *opts.jsonOut {
				return opts.print(turns)
			}
			for _, t := range turns {
				fmt.Printf("#%d\tentity=%d\t%s\tkind=%s", t.Nonce, t.Entity, t.Action.Kind, t.Provider)
				if t.Result.Damage > 0 {
					fmt.Printf("\tdamage=%d", t.Result.Damage)
				}
				if t.Result.Defeated {
					fmt.Printf("\tdefeated")
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id")
	cmd.Flags().IntVar(&n, "n", 20, "number of turns")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
