package telegram

import (
	"testing"

	logx "motibot/pkg/logx"
)

func TestSplitCommand(t *testing.T) {
	const botUser = "MotivationalBot"
	tests := []struct {
		in      string
		cmd     string
		text    string
		foreign bool
	}{
		{in: "/subscribe", cmd: "subscribe"},
		{in: "/Subscribe", cmd: "subscribe"},
		{in: "/quote@MotivationalBot", cmd: "quote"},
		{in: "/quote@motivationalbot", cmd: "quote"},
		{in: "/start hello there", cmd: "start", text: "hello there"},
		{in: "hello there", text: "hello there"},
		{in: "  I feel stressed  ", text: "I feel stressed"},
		{in: "", text: ""},
		{in: "not/a/command", text: "not/a/command"},
		// Group chats deliver every bot's commands to every bot; mentions
		// for someone else are not ours to run.
		{in: "/subscribe@SomeOtherBot", foreign: true},
		{in: "/quote@SomeOtherBot now", foreign: true},
	}
	for _, tt := range tests {
		cmd, text, mine := splitCommand(tt.in, botUser)
		if mine == tt.foreign {
			t.Errorf("splitCommand(%q) mine = %v, want %v", tt.in, mine, !tt.foreign)
			continue
		}
		if tt.foreign {
			continue
		}
		if cmd != tt.cmd || text != tt.text {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)", tt.in, cmd, text, tt.cmd, tt.text)
		}
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
