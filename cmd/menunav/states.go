package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salieri-auto/menunav/internal/nav"
)

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List the states of the menu graph and the templates they depend on",
	RunE: func(cmd *cobra.Command, args []string) error {
		// No window or prober needed just to describe the graph.
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		clicker := nav.NewClicker(logger, nil, nil, nav.ClickOptions{})
		recovery := nav.NewUndefinedRecovery(logger, nil, nil, nav.DefaultSignatures(), "esc", 0)

		for _, s := range nav.DefaultStates(logger, clicker, recovery) {
			kind := "transition"
			if s.IsTerminal() {
				kind = "terminal"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s %s\n", s.ID(), kind, s.Description())
			if templates := s.ExpectedTemplates(); len(templates) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s templates: %s\n", "", "", strings.Join(templates, ", "))
			}
		}
		return nil
	},
}
