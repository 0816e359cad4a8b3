package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ariefcatur/restobill/internal/chat"
	"github.com/spf13/cobra"
)

var chatScript string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the demo assistant from the terminal",
	Long: `Starts a chat session using the keyword script (or Gemini when
GEMINI_API_KEY is set). Type /reset to start over, /quit to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		script := chat.DefaultScript()
		path := chatScript
		if path == "" {
			path = cfg.Chat.ScriptPath
		}
		if path != "" {
			s, err := chat.LoadScript(path)
			if err != nil {
				return err
			}
			script = s
		}

		opts := chat.Options{Script: script, ReplyTimeout: cfg.Chat.ReplyTimeout, Log: logger}
		if cfg.Chat.GeminiAPIKey != "" {
			g, err := chat.NewGeminiResponder(cmd.Context(), cfg.Chat.GeminiAPIKey, cfg.Chat.GeminiModel, script.SystemInstruction)
			if err != nil {
				return err
			}
			opts.Responder = g
		}
		sess := chat.NewSession(opts)
		defer sess.Close()
		return runChat(cmd.Context(), sess, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatScript, "script", "", "YAML chat script (default CHAT_SCRIPT or built-in)")
}

func runChat(ctx context.Context, sess *chat.Session, in io.Reader, out io.Writer) error {
	printed := 0
	flush := func() {
		tr := sess.Transcript()
		for _, m := range tr[printed:] {
			if m.Role == chat.RoleAssistant {
				fmt.Fprintf(out, "assistant> %s\n", m.Text)
			}
		}
		printed = len(tr)
	}
	flush()

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			sess.Reset()
			printed = 0
			flush()
			continue
		}
		if _, err := sess.Submit(line); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		if err := sess.WaitIdle(ctx); err != nil {
			return err
		}
		flush()
	}
}
