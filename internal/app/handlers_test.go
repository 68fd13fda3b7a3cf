package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"motibot/internal/chat"
	"motibot/internal/config"
	"motibot/internal/llm"
	"motibot/internal/services/broadcast"
	kit "motibot/internal/transport"
	logx "motibot/pkg/logx"
)

type memStore struct {
	subs map[int64]string
	err  error
}

func newMemStore() *memStore { return &memStore{subs: map[int64]string{}} }

func (s *memStore) Subscribe(_ context.Context, chatID int64, firstName, _ string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.subs[chatID]; !ok {
		s.subs[chatID] = firstName
	}
	return nil
}

func (s *memStore) Unsubscribe(_ context.Context, chatID int64) error {
	if s.err != nil {
		return s.err
	}
	delete(s.subs, chatID)
	return nil
}

func (s *memStore) List(context.Context) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := make([]int64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memStore) Close() error { return nil }

type recordingAdapter struct {
	sent []struct {
		ChatID int64
		Text   string
	}
}

func (a *recordingAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (a *recordingAdapter) Stop(context.Context) error                     { return nil }

func (a *recordingAdapter) SendText(_ context.Context, chatID int64, text string) error {
	a.sent = append(a.sent, struct {
		ChatID int64
		Text   string
	}{chatID, text})
	return nil
}

func (a *recordingAdapter) lastTo(chatID int64) string {
	for i := len(a.sent) - 1; i >= 0; i-- {
		if a.sent[i].ChatID == chatID {
			return a.sent[i].Text
		}
	}
	return ""
}

type cannedCompleter struct{ text string }

func (c cannedCompleter) Complete(context.Context, []llm.Message) (string, error) {
	return c.text, nil
}

func newTestApp(store *memStore, completer llm.Completer) (*App, *recordingAdapter) {
	ad := &recordingAdapter{}
	a := &App{
		cfg: &config.Config{
			Broadcast: config.BroadcastConfig{Time: "09:00", Timezone: "Asia/Kolkata"},
		},
		log:     logx.Nop(),
		store:   store,
		adapter: ad,
		history: chat.NewHistory(5),
		gen:     chat.NewGenerator(completer, logx.Nop()),
	}
	a.caster = broadcast.New(broadcast.Config{RatePerSec: 1000}, store, ad, logx.Nop())
	return a, ad
}

func TestSubscribeCommand(t *testing.T) {
	store := newMemStore()
	a, ad := newTestApp(store, nil)

	a.handleMessage(context.Background(), kit.Message{ChatID: 10, FirstName: "Asha", Command: "subscribe"})

	if _, ok := store.subs[10]; !ok {
		t.Fatal("chat 10 not subscribed")
	}
	if msg := ad.lastTo(10); !strings.Contains(msg, "subscribed") || !strings.Contains(msg, "09:00") {
		t.Fatalf("ack = %q", msg)
	}
}

func TestUnsubscribeCommand(t *testing.T) {
	store := newMemStore()
	store.subs[10] = "Asha"
	a, ad := newTestApp(store, nil)

	a.handleMessage(context.Background(), kit.Message{ChatID: 10, Command: "unsubscribe"})

	if _, ok := store.subs[10]; ok {
		t.Fatal("chat 10 still subscribed")
	}
	if msg := ad.lastTo(10); !strings.Contains(msg, "unsubscribed") {
		t.Fatalf("ack = %q", msg)
	}
}

func TestStoreFailureDoesNotReply(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk gone")
	a, ad := newTestApp(store, nil)

	a.handleMessage(context.Background(), kit.Message{ChatID: 10, Command: "subscribe"})

	if len(ad.sent) != 0 {
		t.Fatalf("unexpected sends: %+v", ad.sent)
	}
}

func TestStartAndQuoteCommands(t *testing.T) {
	a, ad := newTestApp(newMemStore(), nil)
	ctx := context.Background()

	a.handleMessage(ctx, kit.Message{ChatID: 1, FirstName: "Asha", Command: "start"})
	if msg := ad.lastTo(1); !strings.Contains(msg, "Hi Asha") || !strings.Contains(msg, "/subscribe") {
		t.Fatalf("welcome = %q", msg)
	}

	a.handleMessage(ctx, kit.Message{ChatID: 1, Command: "quote"})
	if msg := ad.lastTo(1); !strings.HasPrefix(msg, "🌟 ") {
		t.Fatalf("quote = %q", msg)
	}
}

func TestFreeTextWithProvider(t *testing.T) {
	a, ad := newTestApp(newMemStore(), cannedCompleter{text: "you've got this"})

	a.handleMessage(context.Background(), kit.Message{ChatID: 5, Text: "rough day"})

	if msg := ad.lastTo(5); msg != "you've got this" {
		t.Fatalf("reply = %q", msg)
	}
	turns := a.history.Get(5)
	if len(turns) != 2 || turns[0].Content != "rough day" {
		t.Fatalf("history = %+v", turns)
	}
}

func TestFreeTextWithoutProvider(t *testing.T) {
	a, ad := newTestApp(newMemStore(), nil)

	a.handleMessage(context.Background(), kit.Message{ChatID: 5, Text: "rough day"})

	if msg := ad.lastTo(5); msg != chat.UnavailableReply {
		t.Fatalf("reply = %q, want unavailable text", msg)
	}
	if turns := a.history.Get(5); len(turns) != 0 {
		t.Fatalf("history should stay empty, got %+v", turns)
	}
}

func TestBlankTextIgnored(t *testing.T) {
	a, ad := newTestApp(newMemStore(), nil)

	a.handleMessage(context.Background(), kit.Message{ChatID: 5, Text: "   "})
	a.handleMessage(context.Background(), kit.Message{ChatID: 5, Command: "dance"})

	if len(ad.sent) != 0 {
		t.Fatalf("unexpected sends: %+v", ad.sent)
	}
}

func TestSendDailyBroadcastsMorningMessage(t *testing.T) {
	store := newMemStore()
	store.subs[1] = "A"
	store.subs[2] = "B"
	a, ad := newTestApp(store, nil)

	if err := a.sendDaily(context.Background()); err != nil {
		t.Fatalf("sendDaily: %v", err)
	}
	if len(ad.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(ad.sent))
	}
	for _, s := range ad.sent {
		if !strings.Contains(s.Text, "Good morning") {
			t.Fatalf("broadcast text = %q", s.Text)
		}
	}
}
