package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"motibot/internal/chat"
	"motibot/internal/quotes"
	kit "motibot/internal/transport"
	logx "motibot/pkg/logx"
)

// handleTimeout bounds one inbound message end to end (generation + send).
const handleTimeout = 60 * time.Second

func (a *App) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-a.updates:
			if up.Message == nil {
				continue
			}
			m := *up.Message
			// One goroutine per update: unrelated chats never block each
			// other; same-chat exchanges serialize on the history lock.
			go func() {
				defer func() {
					if r := recover(); r != nil {
						a.log.Error("panic in handler",
							logx.Int64("chat_id", m.ChatID),
							logx.Any("panic", r),
							logx.String("stack", string(debug.Stack())))
					}
				}()
				hctx, cancel := context.WithTimeout(ctx, handleTimeout)
				defer cancel()
				a.handleMessage(hctx, m)
			}()
		}
	}
}

func (a *App) handleMessage(ctx context.Context, m kit.Message) {
	switch m.Command {
	case "start", "help":
		a.reply(ctx, m.ChatID, welcomeText(m.FirstName))
	case "subscribe":
		a.handleSubscribe(ctx, m)
	case "unsubscribe":
		a.handleUnsubscribe(ctx, m)
	case "quote":
		a.reply(ctx, m.ChatID, "🌟 "+quotes.Random())
	case "":
		if strings.TrimSpace(m.Text) != "" {
			a.handleChat(ctx, m)
		}
	default:
		a.log.Debug("unknown command ignored",
			logx.Int64("chat_id", m.ChatID), logx.String("command", m.Command))
	}
}

func (a *App) handleSubscribe(ctx context.Context, m kit.Message) {
	if err := a.store.Subscribe(ctx, m.ChatID, m.FirstName, a.cfg.Broadcast.Timezone); err != nil {
		a.log.Error("subscribe failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		return
	}
	a.reply(ctx, m.ChatID, fmt.Sprintf(
		"You're subscribed ✅\nYou'll get a motivational message every day at %s (%s).\nUse /unsubscribe to stop.",
		a.cfg.Broadcast.Time, a.cfg.Broadcast.Timezone,
	))
}

func (a *App) handleUnsubscribe(ctx context.Context, m kit.Message) {
	if err := a.store.Unsubscribe(ctx, m.ChatID); err != nil {
		a.log.Error("unsubscribe failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		return
	}
	a.reply(ctx, m.ChatID, "You've been unsubscribed. Use /subscribe to join again.")
}

func (a *App) handleChat(ctx context.Context, m kit.Message) {
	text := strings.TrimSpace(m.Text)
	reply := a.history.Exchange(m.ChatID, text, func(turns []chat.Turn) (string, bool) {
		return a.gen.Reply(ctx, turns, text)
	})
	a.reply(ctx, m.ChatID, reply)
}

func (a *App) reply(ctx context.Context, chatID int64, text string) {
	if err := a.adapter.SendText(ctx, chatID, text); err != nil {
		a.log.Warn("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

// sendDaily is the scheduled broadcast callback.
func (a *App) sendDaily(ctx context.Context) error {
	_, err := a.caster.Run(ctx, quotes.Morning(quotes.Random()))
	return err
}

func welcomeText(firstName string) string {
	hi := "Hi"
	if firstName != "" {
		hi = "Hi " + firstName
	}
	return hi + "! 👋\n\n" +
		"I'm your Motivational Bot.\n\n" +
		"Commands:\n" +
		"/subscribe - Receive daily motivational message (every morning)\n" +
		"/unsubscribe - Stop daily messages\n" +
		"/quote - Get a random motivational quote now\n" +
		"/help - Show this message\n\n" +
		"You can also just chat with me if you're stressed or need motivation."
}
