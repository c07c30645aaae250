package main

import (
	"fmt"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/spf13/cobra"
)

func newLearnedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learned",
		Short: "Show or edit a story's learned words",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list STORY",
		Short: "List learned words, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			s, err := a.story(args[0])
			if err != nil {
				return err
			}
			words, err := db.ListLearned(a.conn, s.ID)
			if err != nil {
				return err
			}
			for _, w := range words {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", w.Key, w.Translation)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "forget STORY KEY",
		Short: "Remove one word or phrase from the learned list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			s, err := a.story(args[0])
			if err != nil {
				return err
			}
			if err := db.ForgetLearned(a.conn, s.ID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", args[1])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear STORY",
		Short: "Empty the learned list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			s, err := a.story(args[0])
			if err != nil {
				return err
			}
			return db.ClearLearned(a.conn, s.ID)
		},
	})
	return cmd
}
