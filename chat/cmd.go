package chat

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/goatplatform/edge-chat/internal/cli"
	"github.com/goatplatform/edge-chat/internal/configuration"
	"github.com/goatplatform/edge-chat/internal/file"
	"github.com/goatplatform/edge-chat/internal/schema"
)

const historyFilepath = "~/.config/edgechat/history"

// NewCmd instantiates and returns the chat command.
func NewCmd(o *Orchestrator, config *configuration.Config) *cobra.Command {
	var opts struct {
		ChatKey string
		Model   string
		New     bool
	}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a model backend",
		Long:  "Chat with a model backend. Defaults to the selected chat. Type /help for commands.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !slices.Contains(o.Models(), opts.Model) {
				return errors.Errorf("unknown model (%s), available: %s", opts.Model, strings.Join(o.Models(), ", "))
			}
			chatKey, err := resolveChat(ctx, o, config.UserID, opts.ChatKey, opts.New)
			if err != nil {
				return err
			}
			historyFile, err := file.ExpandPath(historyFilepath)
			if err != nil {
				return err
			}

			if err := printChat(ctx, o, config.UserID, chatKey, opts.Model); err != nil {
				return err
			}
			for {
				text, err := cli.PromptUser(historyFile)
				if err != nil {
					// Ctrl+C or Ctrl+D.
					return nil
				}
				text = strings.TrimSpace(text)
				if strings.HasPrefix(text, "/") {
					fields := strings.Fields(text)
					switch fields[0] {
					case "/exit", "/quit":
						return nil
					case "/new":
						if !cli.QueryUser("Start a new chat?") {
							continue
						}
						chat, err := o.CreateChat(ctx, config.UserID)
						if err != nil {
							return err
						}
						chatKey = chat.Key()
						if err := printChat(ctx, o, config.UserID, chatKey, opts.Model); err != nil {
							return err
						}
					case "/models":
						for _, model := range o.Models() {
							cli.UserInput("  %s\n", model)
						}
					case "/model":
						models := o.Models()
						if len(fields) == 1 {
							index, err := cli.Select("model", models, opts.Model)
							if err != nil {
								continue
							}
							opts.Model = models[index]
						} else if len(fields) == 2 && slices.Contains(models, fields[1]) {
							opts.Model = fields[1]
						} else {
							cli.Error("usage: /model [%s]", strings.Join(models, "|"))
							continue
						}
						cli.Title("%s", opts.Model)
					default:
						cli.UserInput("/new: start a new chat\n/models: list models\n/model [id]: switch model\n/exit: quit\n")
					}
					continue
				}

				response, err := send(ctx, o, &SendRequest{
					UserID:  config.UserID,
					ChatKey: chatKey,
					Prompt:  text,
					Model:   opts.Model,
					OnProgress: func(status string, progress int) {
						cli.Status(status, progress)
					},
				})
				cli.ClearStatus()
				if err != nil {
					return err
				}
				if response.State == StateIdle {
					continue
				}
				cli.BotOutput(NewMessageView(response.BotMessage).Text)
			}
		},
	}

	cmd.Flags().StringVar(&opts.ChatKey, "chat", "", "specify a chat key. Defaults to the selected chat")
	cmd.Flags().StringVarP(&opts.Model, "model", "m", config.Chat.DefaultModel, "specify the model backend")
	cmd.Flags().BoolVarP(&opts.New, "new", "n", false, "start a new chat")
	return cmd
}

// send interrupts the generation, not the process, on Ctrl+C.
func send(ctx context.Context, o *Orchestrator, req *SendRequest) (*SendResponse, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return o.Send(ctx, req)
}

// resolveChat returns the chat to talk in: the requested one, else the selected one, else a new one.
func resolveChat(ctx context.Context, o *Orchestrator, userID, chatKey string, forceNew bool) (string, error) {
	if !forceNew && chatKey == "" {
		selected, err := SelectedChat(ctx, o.Store(), userID)
		if err != nil {
			return "", err
		}
		chatKey = selected
	}
	if forceNew || chatKey == "" {
		chat, err := o.CreateChat(ctx, userID)
		if err != nil {
			return "", err
		}
		return chat.Key(), nil
	}
	if err := SelectChat(ctx, o.Store(), userID, chatKey); err != nil {
		return "", err
	}
	return chatKey, nil
}

func printChat(ctx context.Context, o *Orchestrator, userID, chatKey, model string) error {
	chat, err := GetChat(ctx, o.Store(), userID, chatKey)
	if err != nil {
		return err
	}
	cli.Title("EDGECHAT [%s](%s)", chat.GetString(schema.FieldTitle), model)

	query, err := NewMessageListQuery(o.Store(), chatKey)
	if err != nil {
		return err
	}
	defer query.Close()
	for _, message := range NewMessageViews(query.Results()) {
		if message.FromModel() {
			cli.BotOutput(message.Text)
			continue
		}
		cli.UserInput("> %s\n", message.Text)
	}
	return nil
}

// NewListChatsCmd instantiates and returns the list command.
func NewListChatsCmd(o *Orchestrator, config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all chats",
		Long:  "List all chats, most recently modified first",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			selected, err := SelectedChat(ctx, o.Store(), config.UserID)
			if err != nil {
				return err
			}
			query, err := NewChatListQuery(o.Store(), config.UserID)
			if err != nil {
				return err
			}
			defer query.Close()

			cli.Title("EDGECHAT LIST")
			for _, chat := range NewChatViews(query.Results(), selected) {
				marker := " "
				if chat.Selected {
					marker = "*"
				}
				cli.UserInput("%s %s  %-20s %s\n", marker, chat.Key, chat.Title, chat.LastModified.Format(time.DateTime))
			}
			return nil
		},
	}
}

// NewSelectCmd instantiates and returns the select command.
func NewSelectCmd(o *Orchestrator, config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "select <chat>",
		Short: "Toggle the selected chat",
		Long:  "Select a chat, or clear the selection if the chat is already selected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := ToggleSelection(cmd.Context(), o.Store(), config.UserID, args[0])
			if err != nil {
				return err
			}
			if selected == "" {
				fmt.Println("selection cleared")
				return nil
			}
			fmt.Printf("selected %s\n", selected)
			return nil
		},
	}
}
