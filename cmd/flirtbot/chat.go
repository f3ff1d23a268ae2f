package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"flirtbot/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		responder, closer, err := buildResponder(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		_, err = tea.NewProgram(tui.New(responder), tea.WithAltScreen()).Run()
		return err
	},
}
