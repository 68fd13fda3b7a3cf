// Package telegram adapts telebot's long-poll loop onto transport.Adapter.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "motibot/internal/transport"
	logx "motibot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot *tele.Bot
	out atomic.Value // stores (chan<- kit.Update)

	runMu    sync.Mutex
	running  bool
	stopOnce sync.Once

	// droppedUpdates counts updates dropped because the consumer was slower
	// than the poll loop. Logged on Stop() to avoid per-update spam.
	droppedUpdates uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	// Ensure atomic.Value is initialized with a stable dynamic type.
	var nilOut chan<- kit.Update
	a.out.Store(nilOut)
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) registerHandlers() {
	// Handlers forward to the CURRENT output channel. Start() may swap it.
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Chat == nil {
			return nil
		}
		first := ""
		if m.Sender != nil {
			first = m.Sender.FirstName
		}
		cmd, text, mine := splitCommand(m.Text, a.botUsername())
		if !mine {
			return nil
		}
		a.sendUpdate(kit.Update{Message: &kit.Message{
			ChatID:    m.Chat.ID,
			FirstName: first,
			Text:      text,
			Command:   cmd,
		}})
		return nil
	})
}

func (a *Adapter) botUsername() string {
	if a.bot.Me == nil {
		return ""
	}
	return a.bot.Me.Username
}

// splitCommand normalizes "/cmd@BotName rest" into ("cmd", "rest").
// A command explicitly mentioning a different bot (group chats route all
// commands to every bot) comes back with mine=false and must be dropped.
// Non-command text is ("", text, true).
func splitCommand(raw, botUser string) (cmd, text string, mine bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") {
		return "", raw, true
	}
	head, rest, _ := strings.Cut(raw[1:], " ")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		mention := head[at+1:]
		head = head[:at]
		if !strings.EqualFold(mention, botUser) {
			return "", "", false
		}
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (a *Adapter) sendUpdate(up kit.Update) {
	v := a.out.Load()
	out, _ := v.(chan<- kit.Update)
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		atomic.AddUint64(&a.droppedUpdates, 1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.runMu.Unlock()

	// Stop telebot when the context is cancelled.
	go func() {
		<-ctx.Done()
		a.stopBot()
	}()

	go func() {
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop()
		a.log.Info("polling stopped")
	}()

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	wasRunning := a.running
	a.running = false
	var nilOut chan<- kit.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
		a.log.Warn("incoming updates dropped (channel full)", logx.Any("count", n))
	}

	// telebot Stop is expected to be fast; run it async just in case and keep
	// shutdown snappy even if getUpdates long-poll is still waiting.
	done := make(chan struct{})
	go func() {
		a.stopBot()
		close(done)
	}()

	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	select {
	case <-done:
	case <-time.After(grace):
		a.log.Warn("telegram stop timed out")
	case <-ctx.Done():
	}
	return nil
}

// stopBot is safe to call from multiple shutdown paths; telebot's Stop()
// must only run once.
func (a *Adapter) stopBot() {
	a.stopOnce.Do(func() { a.bot.Stop() })
}

func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Send(tele.ChatID(chatID), text)
	return err
}
