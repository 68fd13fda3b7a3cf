package chat

import (
	"context"
	"strings"

	"motibot/internal/llm"
	logx "motibot/pkg/logx"
)

const systemPrompt = "You are a kind motivational assistant. " +
	"Reply in 2-3 sentences, always positive, encouraging, and supportive. " +
	"If user is stressed, give calming and simple tips."

// FallbackReply is sent when the provider call fails mid-conversation.
const FallbackReply = "I'm here for you 💙. Take a deep breath and remember you're doing your best."

// UnavailableReply is sent when no provider credential is configured at all.
const UnavailableReply = "Sorry, my AI chat service is currently unavailable. But remember: You've got this!"

// Generator turns (history, input) into a reply. It is stateless: recording
// the exchange into History is the caller's concern.
//
// A provider failure never surfaces to the caller as an error; the worst a
// user sees is FallbackReply.
type Generator struct {
	client llm.Completer
	log    logx.Logger
}

// NewGenerator builds a Generator. client may be nil when no provider
// credential is configured; every reply is then UnavailableReply.
func NewGenerator(client llm.Completer, log logx.Logger) *Generator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Generator{client: client, log: log}
}

// Configured reports whether a provider is wired at all.
func (g *Generator) Configured() bool { return g.client != nil }

// Reply produces the assistant reply for userText given the turns so far
// (oldest first). record is false when the exchange should not be added to
// the history: either no provider is configured, or nothing was generated.
func (g *Generator) Reply(ctx context.Context, turns []Turn, userText string) (reply string, record bool) {
	if g.client == nil {
		return UnavailableReply, false
	}

	messages := make([]llm.Message, 0, len(turns)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: RoleUser, Content: userText})

	text, err := g.client.Complete(ctx, messages)
	if err != nil {
		g.log.Error("generation failed", logx.Err(err))
		return FallbackReply, true
	}
	return strings.TrimSpace(text), true
}
