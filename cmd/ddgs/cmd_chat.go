package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/ddgs/pkg/ddgs"
)

var chatModel string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat on stdin",
	Long: `Start a conversation and read prompts from stdin, one per line. Replies are
written to stdout. Type /quit or send EOF to end; /models lists the models.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		session, err := client.NewChat(chatModel)
		if err != nil {
			return err
		}

		out, prompt := cmd.OutOrStdout(), cmd.ErrOrStderr()
		in := bufio.NewScanner(cmd.InOrStdin())
		in.Buffer(make([]byte, 0, 64*1024), 1<<20)

		fmt.Fprintf(prompt, "chatting with %s\n>>> ", session.Model())
		for in.Scan() {
			line := strings.TrimSpace(in.Text())
			switch line {
			case "":
				fmt.Fprint(prompt, ">>> ")
				continue
			case "/quit", "/exit":
				return nil
			case "/models":
				fmt.Fprintln(out, strings.Join(ddgs.ChatModels(), "\n"))
				fmt.Fprint(prompt, ">>> ")
				continue
			}

			reply, err := session.Send(cmd.Context(), line)
			if errors.Is(err, ddgs.ErrConversationLimit) {
				fmt.Fprintln(prompt, "conversation limit reached; start a new chat")
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, reply)
			logger.Debug("chat turn", "tokens", session.Tokens())
			fmt.Fprint(prompt, ">>> ")
		}
		return in.Err()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", "gpt-4o-mini",
		"chat model: "+strings.Join(ddgs.ChatModels(), ", "))
	rootCmd.AddCommand(chatCmd)
}
