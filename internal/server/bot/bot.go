// Package bot is the Telegram front end. It offers the same
// login/download/logout actions as the web UI over chat commands,
// authenticated against the same user store. There is no captcha on
// this path.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"filegate/internal/server/service"
)

const helpText = `Commands:
/login <username> <password> - log in
/download - get the current archive
/logout - log out`

// Bot runs the Telegram front end.
type Bot struct {
	api      *tgbotapi.BotAPI
	auth     *service.AuthService
	assets   *service.AssetService
	sessions *SessionStore
	done     chan struct{}
}

// New connects to the Telegram API with the given token.
func New(token string, auth *service.AuthService, assets *service.AssetService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	slog.Info("telegram bot connected", "username", api.Self.UserName)
	return &Bot{
		api:      api,
		auth:     auth,
		assets:   assets,
		sessions: NewSessionStore(),
		done:     make(chan struct{}),
	}, nil
}

// Start begins long polling in a background goroutine until the context
// is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	go func() {
		defer close(b.done)
		for {
			select {
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message == nil {
					continue
				}
				b.handleMessage(ctx, update.Message)
			}
		}
	}()
}

// Wait blocks until the bot has fully stopped.
func (b *Bot) Wait() {
	<-b.done
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.reply(msg.Chat.ID, helpText)
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, "Welcome to Filegate.\n"+helpText)
	case "login":
		b.handleLogin(ctx, msg)
	case "download":
		b.handleDownload(ctx, msg)
	case "logout":
		b.sessions.Delete(msg.Chat.ID)
		b.reply(msg.Chat.ID, "Logged out.")
	default:
		b.reply(msg.Chat.ID, "Unknown command.\n"+helpText)
	}
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /login <username> <password>")
		return
	}

	user, err := b.auth.Login(ctx, args[0], args[1])
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownUser):
			b.reply(msg.Chat.ID, "No account with that username or email.")
		case errors.Is(err, service.ErrWrongPassword):
			b.reply(msg.Chat.ID, "Wrong password.")
		default:
			slog.Error("bot login failed", "chat_id", msg.Chat.ID, "error", err)
			b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		}
		return
	}

	b.sessions.Put(msg.Chat.ID, *user)
	b.reply(msg.Chat.ID, fmt.Sprintf("Logged in as %s. Use /download to get the archive.", user.Username))
}

func (b *Bot) handleDownload(ctx context.Context, msg *tgbotapi.Message) {
	if _, ok := b.sessions.Get(msg.Chat.ID); !ok {
		b.reply(msg.Chat.ID, "Log in first: /login <username> <password>")
		return
	}

	info, err := b.assets.ArchiveInfo(ctx)
	if err != nil {
		if errors.Is(err, service.ErrNoArchive) {
			b.reply(msg.Chat.ID, "The download is not available yet.")
			return
		}
		slog.Error("bot download failed", "chat_id", msg.Chat.ID, "error", err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(info.Path))
	if _, err := b.api.Send(doc); err != nil {
		slog.Error("failed to send archive", "chat_id", msg.Chat.ID, "error", err)
		b.reply(msg.Chat.ID, "Failed to send the archive, please try again.")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}
