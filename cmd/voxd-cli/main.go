// Command voxd-cli is a terminal client for a running voxd server.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sessionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle       = lipgloss.NewStyle().Faint(true)
)

var (
	flagServer    string
	flagUser      string
	flagSignature string
)

func api() *client {
	return newClient(flagServer, flagUser, flagSignature)
}

type sessionView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	root := &cobra.Command{
		Use:   "voxd-cli",
		Short: "Terminal client for a voxd chat server",
	}
	root.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8080", "voxd server base URL")
	root.PersistentFlags().StringVar(&flagUser, "user", "", "identity for per-user sessions")
	root.PersistentFlags().StringVar(&flagSignature, "signature", "", "identity signature from login")

	root.AddCommand(sessionsCmd(), newCmd(), showCmd(), sendCmd(), deleteCmd(), loginCmd(), pingCmd(), speakCmd(), voicesCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Sessions []sessionView `json:"sessions"`
			}
			if err := api().do(http.MethodGet, "/v1/sessions", nil, &out); err != nil {
				return err
			}
			if len(out.Sessions) == 0 {
				fmt.Println(dimStyle.Render("no sessions yet"))
				return nil
			}
			for _, s := range out.Sessions {
				fmt.Printf("%s  %s  %s\n",
					sessionStyle.Render(s.ID),
					titleStyle.Render(s.Title),
					dimStyle.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04")))
			}
			return nil
		},
	}
}

func newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s sessionView
			if err := api().do(http.MethodPost, "/v1/sessions", nil, &s); err != nil {
				return err
			}
			fmt.Println(sessionStyle.Render(s.ID) + "  " + titleStyle.Render(s.Title))
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s sessionView
			if err := api().do(http.MethodGet, "/v1/sessions/"+args[0], nil, &s); err != nil {
				return err
			}
			fmt.Println(titleStyle.Render(s.Title))
			for _, m := range s.Messages {
				style := userStyle
				label := "you"
				if m.Role == "assistant" {
					style = assistantStyle
					label = "ai"
				}
				fmt.Printf("%s %s\n", style.Render(label+":"), m.Content)
			}
			return nil
		},
	}
}

func sendCmd() *cobra.Command {
	var sessionID string
	var voice bool
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			path := "/v1/messages?stream=1"
			if sessionID != "" {
				path = "/v1/sessions/" + sessionID + "/messages?stream=1"
			}

			printed := 0
			err := api().stream(path, map[string]string{"content": text}, func(ev sseEvent) {
				switch ev.Name {
				case "partial":
					var p struct {
						Text string `json:"text"`
					}
					if json.Unmarshal(ev.Data, &p) != nil {
						return
					}
					// events carry growing prefixes; print only the delta
					if len(p.Text) > printed {
						fmt.Print(p.Text[printed:])
						printed = len(p.Text)
					}
				case "done":
					var d struct {
						SessionID string `json:"session_id"`
						Failed    bool   `json:"failed"`
						Message   struct {
							Content string `json:"content"`
						} `json:"message"`
					}
					if json.Unmarshal(ev.Data, &d) != nil {
						return
					}
					if len(d.Message.Content) > printed {
						fmt.Print(d.Message.Content[printed:])
						printed = len(d.Message.Content)
					}
					fmt.Println()
					if d.Failed {
						fmt.Println(errStyle.Render("(relay failed)"))
					} else if voice {
						body := map[string]string{"text": d.Message.Content}
						if err := api().do(http.MethodPost, "/v1/speech/speak", body, nil); err != nil {
							fmt.Println(errStyle.Render("speak: " + err.Error()))
						}
					}
					fmt.Println(dimStyle.Render("session: " + d.SessionID))
				}
			})
			return err
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to continue; omitted starts a new one")
	cmd.Flags().BoolVar(&voice, "speak", false, "speak the reply on the server host")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return api().do(http.MethodDelete, "/v1/sessions/"+args[0], nil, nil)
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in and print the identity signature",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				User struct {
					Username string `json:"username"`
				} `json:"user"`
				Signature string `json:"signature"`
			}
			body := map[string]string{"email": args[0], "password": args[1]}
			if err := api().do(http.MethodPost, "/v1/auth/login", body, &out); err != nil {
				return err
			}
			fmt.Println(titleStyle.Render("signed in as " + out.User.Username))
			fmt.Printf("pass these on future calls:\n  --user %s --signature %s\n", out.User.Username, out.Signature)
			return nil
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check upstream AI connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			}
			if err := api().do(http.MethodGet, "/v1/relay/ping", nil, &out); err != nil {
				return err
			}
			if out.Status != "ok" {
				fmt.Println(errStyle.Render(out.Error))
				return nil
			}
			fmt.Println(assistantStyle.Render("relay ok"))
			return nil
		},
	}
}

func speakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speak <text>",
		Short: "Speak text on the server host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"text": strings.Join(args, " ")}
			return api().do(http.MethodPost, "/v1/speech/speak", body, nil)
		},
	}
}

func voicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List synthesis voices on the server host",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Voices []struct {
					Name string `json:"name"`
					Lang string `json:"lang"`
				} `json:"voices"`
			}
			if err := api().do(http.MethodGet, "/v1/speech/voices", nil, &out); err != nil {
				return err
			}
			if len(out.Voices) == 0 {
				fmt.Println(dimStyle.Render("no voices available"))
				return nil
			}
			for _, v := range out.Voices {
				fmt.Printf("%s  %s\n", titleStyle.Render(v.Name), dimStyle.Render(v.Lang))
			}
			return nil
		},
	}
}
