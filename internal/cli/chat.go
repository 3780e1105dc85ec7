package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/agent"
	"github.com/asad-creats/taskagent/internal/backend"
	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/store"
	"github.com/asad-creats/taskagent/pkg/client"
	"github.com/asad-creats/taskagent/pkg/models"
)

// chatter sends one message of a conversation and returns the reply.
type chatter interface {
	Send(ctx context.Context, message string) (models.ChatResponse, error)
	Close() error
}

func newChatCmd() *cobra.Command {
	var (
		message string
		plain   bool
		asJSON  bool
		local   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the task assistant (one message with -m, otherwise interactive)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, where, err := openChat(cmd.Context(), local)
			if err != nil {
				return err
			}
			defer func() { _ = ch.Close() }()

			md := markdownRenderer(plain || asJSON)
			out := cmd.OutOrStdout()
			send := func(msg string) error {
				resp, err := ch.Send(cmd.Context(), msg)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(resp)
				}
				_, _ = fmt.Fprintln(out, renderReply(md, resp.Response))
				return nil
			}

			if message != "" {
				return send(message)
			}
			slog.Debug("chat session started", "via", where)
			return chatLoop(cmd.Context(), cmd.InOrStdin(), out, send)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send one message and exit")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print replies without markdown rendering")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response (actions, tool results) as JSON")
	cmd.Flags().BoolVar(&local, "local", false, "Run the assistant in this process even if the daemon is running")
	return cmd
}

// chatLoop reads one message per line until EOF, "exit" or "quit".
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, send func(string) error) error {
	_, _ = fmt.Fprintln(out, mutedStyle.Render(`Ask about your tasks. Type "exit" to quit.`))
	sc := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, titleStyle.Render("you> "))
		if !sc.Scan() {
			_, _ = fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := send(line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			_, _ = fmt.Fprintln(out, overdueStyle.Render("error: "+err.Error()))
		}
	}
}

// openChat prefers the running daemon so the conversation shows up in the web
// UI; otherwise it runs a dispatcher in-process over the configured store.
func openChat(ctx context.Context, forceLocal bool) (chatter, string, error) {
	home := config.MustHomeFrom(ctx)
	cfg := config.FromContext(ctx)
	if !forceLocal {
		if c, ok := daemonClient(ctx, home, cfg); ok {
			if _, err := c.Health(ctx); err == nil {
				return &remoteChat{c: c}, "daemon", nil
			}
		}
	}
	st, err := backend.OpenStore(ctx, cfg, home, slog.Default())
	if err != nil {
		return nil, "", err
	}
	model, err := backend.NewClient(ctx, cfg, slog.Default())
	if err != nil {
		_ = st.Close()
		return nil, "", err
	}
	d := agent.NewDispatcher(st, model, agent.Options{
		Model:        cfg.LLM.Model,
		CommandDelay: cfg.Agent.CommandDelay,
		HistoryLimit: cfg.Agent.HistoryLimit,
	})
	return &localChat{st: st, sess: agent.NewSession(d)}, "local", nil
}

type remoteChat struct {
	c         *client.Client
	sessionID string
}

func (r *remoteChat) Send(ctx context.Context, message string) (models.ChatResponse, error) {
	resp, err := r.c.Chat(ctx, r.sessionID, message)
	if err != nil {
		return models.ChatResponse{}, err
	}
	r.sessionID = resp.SessionID
	return *resp, nil
}

func (r *remoteChat) Close() error {
	if r.sessionID == "" {
		return nil
	}
	return r.c.DeleteSession(context.Background(), r.sessionID)
}

type localChat struct {
	st   store.Store
	sess *agent.Session
}

func (l *localChat) Send(ctx context.Context, message string) (models.ChatResponse, error) {
	resp, err := l.sess.Send(ctx, message)
	if err != nil {
		return models.ChatResponse{}, err
	}
	var out models.ChatResponse
	if err := convert(resp, &out); err != nil {
		return models.ChatResponse{}, err
	}
	out.SessionID = l.sess.ID
	return out, nil
}

func (l *localChat) Close() error { return l.st.Close() }
