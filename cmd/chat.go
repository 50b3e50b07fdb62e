package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Vovarama1992/collection-bot/internal/chat"
)

var customerID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot in the terminal",
	Long: `Starts one session for --customer-id (the demo profile when the customer
is unknown or the flag is omitted). Type quit, exit or q to end.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, closeFn, err := buildEngine(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()
		return runChat(ctx, engine, customerID, os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&customerID, "customer-id", "", "CustomerID to load")
}

func isQuit(s string) bool {
	switch strings.ToLower(s) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// runChat drives one session over a line-oriented terminal.
func runChat(ctx context.Context, engine *chat.Engine, customerID string, in io.Reader, out io.Writer) error {
	s := engine.Start(ctx, customerID)
	fmt.Fprintf(out, "Persona detected: %s (%s).\n", s.Persona(), s.Persona().Traits().Tone)

	greeting, err := s.Greet()
	if err != nil {
		_, _ = s.End(ctx)
		return err
	}
	fmt.Fprintln(out, greeting)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			_, err := s.End(ctx)
			if err != nil {
				return err
			}
			return sc.Err()
		}

		text := strings.TrimSpace(sc.Text())
		if isQuit(text) {
			goodbye, err := s.End(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Bot:", goodbye)
			return nil
		}

		reply, err := s.Respond(ctx, text)
		if err != nil {
			_, _ = s.End(ctx)
			return err
		}
		fmt.Fprintln(out, "Bot:", reply.Reply)
		fmt.Fprintln(out, "[Next-best action]:", reply.NextBestAction)
	}
}
