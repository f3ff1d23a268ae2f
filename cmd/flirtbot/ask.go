package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var errNoResponse = errors.New("no response")

var askLanguage string

var askCmd = &cobra.Command{
	Use:   "ask <text>",
	Short: "Print the pickup line closest to text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		responder, closer, err := buildResponder(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		line, ok := responder.Respond(cmd.Context(), strings.Join(args, " "), askLanguage)
		if !ok {
			return errNoResponse
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askLanguage, "lang", "l", "english", "language of the answer")
}
