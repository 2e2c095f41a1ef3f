package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"relaybot/internal/channel"
	"relaybot/internal/domain"
	"relaybot/internal/tool"
)

const botID = "42"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeIdentity string

func (f fakeIdentity) SelfID() string { return string(f) }

type fakeInference struct {
	result  domain.InferenceResult
	panicOn bool
	prompts []string
}

func (f *fakeInference) GetResponse(ctx context.Context, prompt string) domain.InferenceResult {
	f.prompts = append(f.prompts, prompt)
	if f.panicOn {
		panic("inference exploded")
	}
	return f.result
}

type sent struct {
	channelID string
	content   string
}

type reaction struct {
	channelID string
	messageID string
	emoji     string
}

type fakeMessenger struct {
	sent      []sent
	reactions []reaction
	sendErr   map[string]error // by channel ID
}

func (f *fakeMessenger) Send(ctx context.Context, channelID, content string) error {
	if err := f.sendErr[channelID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sent{channelID, content})
	return nil
}

func (f *fakeMessenger) React(ctx context.Context, channelID, messageID, emoji string) error {
	f.reactions = append(f.reactions, reaction{channelID, messageID, emoji})
	return nil
}

type fakeDirectory []domain.ChannelInfo

func (f fakeDirectory) Channels() []domain.ChannelInfo { return f }

func (f fakeDirectory) Lookup(id domain.ChannelID) (domain.ChannelInfo, bool) {
	for _, ch := range f {
		if ch.ID == id {
			return ch, true
		}
	}
	return domain.ChannelInfo{}, false
}

type harness struct {
	intake    *Intake
	inference *fakeInference
	messenger *fakeMessenger
}

func newHarness(result domain.InferenceResult) *harness {
	dir := fakeDirectory{
		{ID: 500, Name: "origin", GuildID: "g", Text: true},
		{ID: 101, Name: "general", GuildID: "g", Text: true},
	}
	inf := &fakeInference{result: result}
	m := &fakeMessenger{}
	reg := tool.NewRegistry(testLogger())
	reg.Register(tool.NewSendMessageTool(
		channel.NewResolver(dir, testLogger()),
		tool.NewDispatcher(dir, m, testLogger()),
		testLogger(),
	))
	return &harness{
		intake: NewIntake(IntakeConfig{
			Identity:  fakeIdentity(botID),
			Inference: inf,
			Tools:     reg,
			Messenger: m,
			Logger:    testLogger(),
		}),
		inference: inf,
		messenger: m,
	}
}

func mention(text string) domain.InboundMessage {
	return domain.InboundMessage{
		ID:           "m1",
		ChannelID:    "500",
		AuthorID:     "7",
		AuthorName:   "alice",
		Content:      "<@42> " + text,
		CleanContent: "@relay " + text,
		MentionIDs:   []string{botID},
	}
}

func (h *harness) onlyReply(t *testing.T) string {
	t.Helper()
	if len(h.messenger.sent) != 1 {
		t.Fatalf("expected exactly one message, got %+v", h.messenger.sent)
	}
	if h.messenger.sent[0].channelID != "500" {
		t.Fatalf("expected reply in originating channel, got %q", h.messenger.sent[0].channelID)
	}
	if len(h.messenger.reactions) != 0 {
		t.Fatalf("expected no reactions, got %+v", h.messenger.reactions)
	}
	return h.messenger.sent[0].content
}

func TestHandle_IgnoresOwnMessages(t *testing.T) {
	h := newHarness(domain.TextResult{Text: "hi"})
	msg := mention("hello")
	msg.AuthorID = botID

	h.intake.Handle(context.Background(), msg)

	if len(h.inference.prompts) != 0 || len(h.messenger.sent) != 0 {
		t.Fatal("own messages must be a no-op")
	}
}

func TestHandle_IgnoresUnmentioned(t *testing.T) {
	h := newHarness(domain.TextResult{Text: "hi"})
	msg := mention("hello")
	msg.MentionIDs = []string{"99"}

	h.intake.Handle(context.Background(), msg)

	if len(h.inference.prompts) != 0 || len(h.messenger.sent) != 0 {
		t.Fatal("unmentioned messages must be a no-op")
	}
}

func TestHandle_IgnoresEverythingBeforeReady(t *testing.T) {
	h := newHarness(domain.TextResult{Text: "hi"})
	h.intake.identity = fakeIdentity("")
	msg := mention("hello")
	msg.MentionEveryone = true

	h.intake.Handle(context.Background(), msg)

	if len(h.inference.prompts) != 0 {
		t.Fatal("no inference expected without a bot identity")
	}
}

func TestHandle_PromptCarriesCleanText(t *testing.T) {
	h := newHarness(domain.TextResult{Text: "hi"})

	h.intake.Handle(context.Background(), mention("send hello to #general"))

	if len(h.inference.prompts) != 1 {
		t.Fatalf("expected one inference call, got %d", len(h.inference.prompts))
	}
	p := h.inference.prompts[0]
	if !strings.Contains(p, `User's request: "@relay send hello to #general"`) {
		t.Fatalf("prompt missing clean text:\n%s", p)
	}
	if !strings.Contains(p, `"tool_name": "send_message"`) {
		t.Fatal("prompt must describe the send_message tool")
	}
	if !strings.Contains(p, toolBlock) {
		t.Fatalf("prompt missing the registered tool block:\n%s", p)
	}
}

func TestHandle_EmptyResult(t *testing.T) {
	for _, result := range []domain.InferenceResult{domain.EmptyResult{}, nil, domain.TextResult{}} {
		h := newHarness(result)
		h.intake.Handle(context.Background(), mention("hello"))
		if got := h.onlyReply(t); got != ReplyNoThought {
			t.Fatalf("result %#v: expected %q, got %q", result, ReplyNoThought, got)
		}
	}
}

func TestHandle_TextVerbatim(t *testing.T) {
	text := "Hello there! I can relay messages for you."
	h := newHarness(domain.TextResult{Text: text})

	h.intake.Handle(context.Background(), mention("who are you?"))

	if got := h.onlyReply(t); got != text {
		t.Fatalf("expected verbatim text, got %q", got)
	}
}

func TestHandle_MalformedResult(t *testing.T) {
	h := newHarness(domain.MalformedResult{Raw: `{"foo":1}`})

	h.intake.Handle(context.Background(), mention("hello"))

	if got := h.onlyReply(t); got != ReplyNotUnderstood {
		t.Fatalf("expected %q, got %q", ReplyNotUnderstood, got)
	}
}

func TestHandle_UnknownToolName(t *testing.T) {
	h := newHarness(domain.ToolCallResult{Name: "delete_channel", Arguments: map[string]any{"channel": "general"}})

	h.intake.Handle(context.Background(), mention("hello"))

	if got := h.onlyReply(t); got != ReplyNotUnderstood {
		t.Fatalf("expected %q, got %q", ReplyNotUnderstood, got)
	}
}

func TestHandle_ToolCallDispatches(t *testing.T) {
	h := newHarness(domain.ToolCallResult{
		Name:      domain.ToolSendMessage,
		Arguments: map[string]any{"channel": "general", "message": "hi"},
	})

	h.intake.Handle(context.Background(), mention("send hi to general"))

	if len(h.messenger.sent) != 1 {
		t.Fatalf("expected one send, got %+v", h.messenger.sent)
	}
	if s := h.messenger.sent[0]; s.channelID != "101" || s.content != "hi" {
		t.Fatalf("unexpected dispatch: %+v", s)
	}
	if len(h.messenger.reactions) != 1 {
		t.Fatalf("expected one reaction, got %+v", h.messenger.reactions)
	}
	if r := h.messenger.reactions[0]; r.channelID != "500" || r.messageID != "m1" || r.emoji != ReactionSuccess {
		t.Fatalf("unexpected reaction: %+v", r)
	}
}

func TestHandle_NumericChannelInvisibleIsSilent(t *testing.T) {
	for _, id := range []string{"999999999999", "99999999999999999999"} {
		h := newHarness(domain.ToolCallResult{
			Name:      domain.ToolSendMessage,
			Arguments: map[string]any{"channel": id, "message": "hi"},
		})

		h.intake.Handle(context.Background(), mention("send hi to "+id))

		if len(h.messenger.sent) != 0 {
			t.Fatalf("%s: expected no messages, got %+v", id, h.messenger.sent)
		}
		if len(h.messenger.reactions) != 1 {
			t.Fatalf("%s: expected the acknowledgement reaction, got %+v", id, h.messenger.reactions)
		}
	}
}

func TestHandle_ChannelNotFound(t *testing.T) {
	h := newHarness(domain.ToolCallResult{
		Name:      domain.ToolSendMessage,
		Arguments: map[string]any{"channel": "#nowhere", "message": "hi"},
	})

	h.intake.Handle(context.Background(), mention("send hi to #nowhere"))

	want := "Sorry, I couldn't find a channel named '#nowhere'"
	if got := h.onlyReply(t); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestHandle_MissingMessageField(t *testing.T) {
	h := newHarness(domain.ToolCallResult{
		Name:      domain.ToolSendMessage,
		Arguments: map[string]any{"channel": "general"},
	})

	h.intake.Handle(context.Background(), mention("send to general"))

	if got := h.onlyReply(t); got != ReplyBadToolCall {
		t.Fatalf("expected %q, got %q", ReplyBadToolCall, got)
	}
}

func TestHandle_MessagingUnavailable(t *testing.T) {
	h := newHarness(domain.ToolCallResult{
		Name:      domain.ToolSendMessage,
		Arguments: map[string]any{"channel": "general", "message": "hi"},
	})
	h.intake.tools = tool.NewRegistry(testLogger())

	h.intake.Handle(context.Background(), mention("send hi to general"))

	if got := h.onlyReply(t); got != ReplyMessagingMissing {
		t.Fatalf("expected %q, got %q", ReplyMessagingMissing, got)
	}
}

func TestHandle_DeliveryErrorBecomesErrorReply(t *testing.T) {
	h := newHarness(domain.ToolCallResult{
		Name:      domain.ToolSendMessage,
		Arguments: map[string]any{"channel": "general", "message": "hi"},
	})
	h.messenger.sendErr = map[string]error{"101": errors.New("missing access")}

	h.intake.Handle(context.Background(), mention("send hi to general"))

	got := h.onlyReply(t)
	if !strings.HasPrefix(got, "Sorry, I encountered an error: ") || !strings.Contains(got, "missing access") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestHandle_PanicIsContained(t *testing.T) {
	h := newHarness(nil)
	h.inference.panicOn = true

	h.intake.Handle(context.Background(), mention("hello"))

	if got := h.onlyReply(t); got != "Sorry, I encountered an error: inference exploded" {
		t.Fatalf("unexpected reply %q", got)
	}
}

// toolBlock is the send_message description as rendered from the registry.
const toolBlock = `You have access to a tool called "send_message".
This tool allows you to send a message to a specific Discord channel.

The tool has the following arguments:
- channel (str): The channel to send the message to. This can be either:
  - A channel ID (integer like 1418965513580711938)
  - A channel name (string like "general" or "#general")
- message (str): The message to send.
`

func TestBuildPrompt(t *testing.T) {
	reg := tool.NewRegistry(testLogger())
	reg.Register(tool.NewSendMessageTool(nil, nil, testLogger()))

	p := BuildPrompt(reg.GetDefinitions(), "100% sure")
	if !strings.HasPrefix(strings.TrimSpace(p), strings.TrimSpace(toolBlock)) {
		t.Fatalf("unexpected prompt head:\n%s", p)
	}
	if !strings.HasSuffix(strings.TrimSpace(p), `User's request: "100% sure"`) {
		t.Fatalf("unexpected prompt tail:\n%s", p)
	}
	if strings.Count(p, "- For ") != 3 {
		t.Fatal("expected three worked examples")
	}
}

func TestBuildPrompt_ArgumentOrder(t *testing.T) {
	def := domain.ToolDefinition{
		Name:        "echo",
		Description: "Echo text.",
		Parameters: tool.ToolParameters(map[string]tool.Param{
			"zeta":  {Type: "integer", Description: "z"},
			"alpha": {Type: "boolean", Description: "a"},
			"text":  {Type: "string", Description: "t"},
		}, []string{"text"}),
	}

	p := BuildPrompt([]domain.ToolDefinition{def}, "x")
	want := "- text (str): t\n- alpha (bool): a\n- zeta (int): z\n"
	if !strings.Contains(p, want) {
		t.Fatalf("expected arguments in order %q, got:\n%s", want, p)
	}
}
