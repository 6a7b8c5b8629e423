package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/fitfusion/internal/agent"
	"github.com/spf13/cobra"
)

var (
	chatUser    string
	chatSession string
	chatSteps   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the assistant in the terminal",
	Long: `Starts an interactive chat as an existing member. With a message
argument, sends that single message and exits.

Commands inside the chat:
  /reset    clear the conversation history
  /exit     leave the chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "member username (required)")
	chatCmd.Flags().StringVar(&chatSession, "session", "cli", "chat session id")
	chatCmd.Flags().BoolVar(&chatSteps, "steps", true, "show reasoning steps")
	_ = chatCmd.MarkFlagRequired("user")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.repo.GetUserByUsername(ctx, chatUser)
	if err != nil {
		return fmt.Errorf("look up member: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %q not found, run \"fitfusion signup\" first", chatUser)
	}

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return chatTurn(ctx, a.svc, out, strings.Join(args, " "))
	}

	fmt.Fprintf(out, "FitFusion assistant. Signed in as %s. Type /exit to leave.\n", user.Username)
	return chatLoop(ctx, a.svc, cmd.InOrStdin(), out)
}

func chatLoop(ctx context.Context, p agent.Processor, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nyou> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := p.ResetSession(ctx, chatUser, chatSession); err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Fprintln(out, "History cleared.")
			continue
		}

		if err := chatTurn(ctx, p, out, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func chatTurn(ctx context.Context, p agent.Processor, out io.Writer, message string) error {
	req := agent.ChatRequest{
		Message:   message,
		Username:  chatUser,
		SessionID: chatSession,
		Channel:   agent.ChannelCLI,
	}
	for resp, err := range p.Chat(ctx, req) {
		if err != nil {
			return err
		}
		printStep(out, resp)
	}
	return nil
}

func printStep(out io.Writer, resp *agent.ChatResponse) {
	switch resp.Type {
	case agent.EventThought:
		if chatSteps {
			fmt.Fprintf(out, "  [%d] thought: %s\n", resp.Iteration, resp.Content)
		}
	case agent.EventAction:
		if chatSteps {
			fmt.Fprintf(out, "  [%d] action: %s %v\n", resp.Iteration, resp.Tool, resp.Args)
		}
	case agent.EventObservation:
		if chatSteps {
			fmt.Fprintf(out, "  [%d] observation: %s\n", resp.Iteration, resp.Content)
		}
	case agent.EventAnswer:
		fmt.Fprintf(out, "\nassistant> %s\n", resp.Content)
	}
}
