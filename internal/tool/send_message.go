package tool

import (
	"context"
	"fmt"
	"log/slog"

	"relaybot/internal/domain"
)

// ChannelResolver maps a channel identifier from the model to a channel ID.
type ChannelResolver interface {
	Resolve(identifier string) (domain.ChannelID, bool)
}

// ChannelNotFoundError reports an identifier that matched no visible channel.
type ChannelNotFoundError struct {
	Identifier string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("no channel named %q", e.Identifier)
}

// Dispatcher delivers text to a channel by ID. A channel the bot cannot see
// is logged and otherwise ignored; delivery failures are returned.
type Dispatcher struct {
	dir       domain.ChannelDirectory
	messenger domain.Messenger
	logger    *slog.Logger
}

func NewDispatcher(dir domain.ChannelDirectory, messenger domain.Messenger, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{dir: dir, messenger: messenger, logger: logger}
}

// Send delivers text to channelID. It reports delivered=false, with a nil
// error, when the channel is not visible.
func (d *Dispatcher) Send(ctx context.Context, channelID domain.ChannelID, text string) (delivered bool, err error) {
	ch, ok := d.dir.Lookup(channelID)
	if !ok {
		d.logger.Warn("dispatch target channel not found", "channel_id", channelID)
		return false, nil
	}
	if err := d.messenger.Send(ctx, ch.ID.String(), text); err != nil {
		return false, err
	}
	d.logger.Info("message relayed", "channel_id", ch.ID, "channel", ch.Name, "len", len(text))
	return true, nil
}

const channelArgDescription = `The channel to send the message to. This can be either:
  - A channel ID (integer like 1418965513580711938)
  - A channel name (string like "general" or "#general")`

// SendMessageTool relays a message to another channel on the model's behalf.
type SendMessageTool struct {
	resolver   ChannelResolver
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewSendMessageTool(resolver ChannelResolver, dispatcher *Dispatcher, logger *slog.Logger) *SendMessageTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendMessageTool{resolver: resolver, dispatcher: dispatcher, logger: logger}
}

func (t *SendMessageTool) Name() string { return domain.ToolSendMessage }

func (t *SendMessageTool) Description() string {
	return "This tool allows you to send a message to a specific Discord channel."
}

func (t *SendMessageTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"channel": {Type: "string", Description: channelArgDescription},
		"message": {Type: "string", Description: "The message to send."},
	}, []string{"channel", "message"})
}

// Execute resolves the channel and dispatches the message. Bad arguments
// wrap domain.ErrInvalidToolCall; an unknown channel name returns
// *ChannelNotFoundError.
func (t *SendMessageTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	inv, err := domain.ToolCallResult{Name: t.Name(), Arguments: args}.Invocation()
	if err != nil {
		t.logger.Warn("invalid send_message arguments",
			"channel", ArgsString(args, "channel"),
			"error", err,
		)
		return "", err
	}

	id, ok := t.resolver.Resolve(inv.Channel)
	if !ok {
		return "", &ChannelNotFoundError{Identifier: inv.Channel}
	}

	delivered, err := t.dispatcher.Send(ctx, id, inv.Message)
	if err != nil {
		return "", fmt.Errorf("send to channel %s: %w", id, err)
	}
	if !delivered {
		return fmt.Sprintf("channel %s not visible, message dropped", id), nil
	}
	return fmt.Sprintf("message sent to channel %s", id), nil
}

var _ domain.Tool = (*SendMessageTool)(nil)
