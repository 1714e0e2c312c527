package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/service/session"
	"github.com/sandevgo/docqa/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

// Asker is the driver-facing side of a conversation session.
type Asker interface {
	ID() string
	Ask(ctx context.Context, raw string) (string, error)
}

// Bot answers the owner's messages from the document session.
type Bot struct {
	bot     *tele.Bot
	sender  *sender
	sess    Asker
	router  core.CmdRouter
	ownerID int64
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	sess Asker,
	router core.CmdRouter,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		sender:  newSender(b),
		sess:    sess,
		router:  router,
		ownerID: cfg.OwnerID,
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Only the owner talks to the session.
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != bot.ownerID {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Int64("owner", b.ownerID).Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx).With().Int64("chat", c.Chat().ID).Logger()
	ctx = logger.WithContext(ctx)

	_ = c.Notify(tele.Typing)

	out := b.reply(ctx, c.Text())
	if err := b.sender.sendMarkdown(ctx, c.Chat(), out, false); err != nil {
		logger.Error().Err(err).Msg("failed to send reply")
		return err
	}
	return nil
}

// reply routes slash commands and sends everything else to the session.
func (b *Bot) reply(ctx context.Context, text string) string {
	if res, ok := b.router.Execute(ctx, b.sess.ID(), text); ok {
		return res
	}

	answer, err := b.sess.Ask(ctx, text)
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("turn failed")
		return "⚠️ " + session.Describe(err)
	}
	return answer
}
