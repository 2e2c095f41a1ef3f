package channel

import (
	"strings"
	"testing"
	"time"

	"relaybot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

func TestSplitMessage_Short(t *testing.T) {
	chunks := splitMessage("hello", 2000)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestSplitMessage_Long(t *testing.T) {
	msg := strings.Repeat("a", 4500)
	chunks := splitMessage(msg, 2000)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != msg {
		t.Fatal("chunks do not reassemble to the original message")
	}
}

func TestSplitMessage_PrefersNewline(t *testing.T) {
	msg := strings.Repeat("a", 1500) + "\n" + strings.Repeat("b", 1000)
	chunks := splitMessage(msg, 2000)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Fatal("expected first chunk to end at the newline")
	}
	if chunks[1] != strings.Repeat("b", 1000) {
		t.Fatal("unexpected second chunk")
	}
}

func TestSplitMessage_RuneAware(t *testing.T) {
	msg := strings.Repeat("é", 2500)
	chunks := splitMessage(msg, 2000)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if n := len([]rune(chunks[0])); n != 2000 {
		t.Fatalf("expected 2000 runes in first chunk, got %d", n)
	}
}

func testState(t *testing.T) *discordgo.State {
	t.Helper()
	state := discordgo.NewState()
	guilds := []*discordgo.Guild{
		{ID: "1", Channels: []*discordgo.Channel{
			{ID: "12", GuildID: "1", Name: "random", Type: discordgo.ChannelTypeGuildText, Position: 2},
			{ID: "11", GuildID: "1", Name: "general", Type: discordgo.ChannelTypeGuildText, Position: 1},
			{ID: "13", GuildID: "1", Name: "Lounge", Type: discordgo.ChannelTypeGuildVoice, Position: 0},
			{ID: "14", GuildID: "1", Name: "news", Type: discordgo.ChannelTypeGuildNews, Position: 3},
		}},
		{ID: "2", Channels: []*discordgo.Channel{
			{ID: "21", GuildID: "2", Name: "General", Type: discordgo.ChannelTypeGuildText},
		}},
	}
	for _, g := range guilds {
		if err := state.GuildAdd(g); err != nil {
			t.Fatalf("guild add: %v", err)
		}
	}
	return state
}

func TestChannelsFromState_Order(t *testing.T) {
	got := channelsFromState(testState(t))

	want := []domain.ChannelID{13, 11, 12, 14, 21}
	if len(got) != len(want) {
		t.Fatalf("expected %d channels, got %d", len(want), len(got))
	}
	for i, ch := range got {
		if ch.ID != want[i] {
			t.Fatalf("channel %d: expected %d, got %d", i, want[i], ch.ID)
		}
	}
	if got[0].Text {
		t.Fatal("voice channel should not be marked as text")
	}
	if !got[3].Text {
		t.Fatal("news channel should be marked as text")
	}
}

func TestChannelsFromState_PositionTieBreaksOnID(t *testing.T) {
	state := discordgo.NewState()
	g := &discordgo.Guild{ID: "1", Channels: []*discordgo.Channel{
		{ID: "300", GuildID: "1", Name: "general", Type: discordgo.ChannelTypeGuildText},
		{ID: "1000", GuildID: "1", Name: "General", Type: discordgo.ChannelTypeGuildText},
		{ID: "20", GuildID: "1", Name: "GENERAL", Type: discordgo.ChannelTypeGuildText},
	}}
	if err := state.GuildAdd(g); err != nil {
		t.Fatalf("guild add: %v", err)
	}

	got := channelsFromState(state)
	want := []domain.ChannelID{20, 300, 1000}
	if len(got) != len(want) {
		t.Fatalf("expected %d channels, got %d", len(want), len(got))
	}
	for i, ch := range got {
		if ch.ID != want[i] {
			t.Fatalf("channel %d: expected %d, got %d", i, want[i], ch.ID)
		}
	}

	d := &Discord{session: &discordgo.Session{State: state}, logger: testLogger()}
	if id, ok := NewResolver(d, testLogger()).Resolve("general"); !ok || id != 20 {
		t.Fatalf("expected lowest ID to win the tie, got %d (ok=%v)", id, ok)
	}
}

func TestChannelsFromState_Nil(t *testing.T) {
	if got := channelsFromState(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestDiscord_DirectoryAndResolver(t *testing.T) {
	d := &Discord{session: &discordgo.Session{State: testState(t)}, logger: testLogger()}
	r := NewResolver(d, testLogger())

	id, ok := r.Resolve("#GENERAL")
	if !ok || id != 11 {
		t.Fatalf("expected first guild's general (11), got %d (ok=%v)", id, ok)
	}
	if _, ok := r.Resolve("lounge"); ok {
		t.Fatal("voice channels must not resolve")
	}

	info, ok := d.Lookup(21)
	if !ok || info.Name != "General" || info.GuildID != "2" {
		t.Fatalf("unexpected lookup result: %+v (ok=%v)", info, ok)
	}
	if _, ok := d.Lookup(999); ok {
		t.Fatal("expected unknown channel lookup to fail")
	}
}

func TestDiscord_SelfID(t *testing.T) {
	state := discordgo.NewState()
	d := &Discord{session: &discordgo.Session{State: state}, logger: testLogger()}
	if got := d.SelfID(); got != "" {
		t.Fatalf("expected empty self ID before ready, got %q", got)
	}

	state.User = &discordgo.User{ID: "42", Username: "relay"}
	if got := d.SelfID(); got != "42" {
		t.Fatalf("expected 42, got %q", got)
	}
}

func TestToInbound(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "11",
		GuildID:   "1",
		Content:   "<@42> tell #general hi",
		Author:    &discordgo.User{ID: "7", Username: "alice"},
		Mentions:  []*discordgo.User{{ID: "42", Username: "relay"}},
		Timestamp: ts,
	}

	msg := toInbound(&discordgo.Session{}, m)

	if msg.ID != "m1" || msg.ChannelID != "11" || msg.GuildID != "1" || msg.AuthorID != "7" {
		t.Fatalf("unexpected identifiers: %+v", msg)
	}
	if msg.Content != m.Content {
		t.Fatalf("raw content changed: %q", msg.Content)
	}
	if msg.CleanContent != "@relay tell #general hi" {
		t.Fatalf("unexpected clean content: %q", msg.CleanContent)
	}
	if !strings.Contains(msg.AuthorName, "alice") {
		t.Fatalf("unexpected author name: %q", msg.AuthorName)
	}
	if !msg.Mentions("42") || msg.Mentions("7") {
		t.Fatalf("unexpected mention set: %v", msg.MentionIDs)
	}
	if !msg.Timestamp.Equal(ts) {
		t.Fatalf("timestamp mismatch: %v", msg.Timestamp)
	}
}
