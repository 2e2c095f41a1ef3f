package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/metrics"
	"relaybot/internal/tool"

	"github.com/google/uuid"
)

// User-facing replies.
const (
	ReplyNoThought        = "Sorry, I had a problem thinking about that."
	ReplyNotUnderstood    = "I got a response I don't understand from the model."
	ReplyBadToolCall      = "Sorry, I couldn't understand the tool call from the model."
	ReplyChannelNotFound  = "Sorry, I couldn't find a channel named '%s'"
	ReplyMessagingMissing = "Messaging functionality is not available."
	ReplyError            = "Sorry, I encountered an error: %s"

	ReactionSuccess = "✅"
)

// InferenceClient turns a prompt into an interpreted model result. Failures
// are reported as domain.EmptyResult.
type InferenceClient interface {
	GetResponse(ctx context.Context, prompt string) domain.InferenceResult
}

// Intake handles every inbound message: it filters for mentions, asks the
// model what to do and carries out exactly one outbound action.
type Intake struct {
	identity  domain.Identity
	inference InferenceClient
	tools     *tool.Registry
	messenger domain.Messenger
	logger    *slog.Logger
}

// IntakeConfig holds the dependencies of an Intake.
type IntakeConfig struct {
	Identity  domain.Identity
	Inference InferenceClient
	Tools     *tool.Registry
	Messenger domain.Messenger
	Logger    *slog.Logger
}

func NewIntake(cfg IntakeConfig) *Intake {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry(cfg.Logger)
	}
	return &Intake{
		identity:  cfg.Identity,
		inference: cfg.Inference,
		tools:     cfg.Tools,
		messenger: cfg.Messenger,
		logger:    cfg.Logger,
	}
}

// Handle processes one message. It never panics and never returns an error:
// any failure after the relevance filter becomes an error reply.
func (in *Intake) Handle(ctx context.Context, msg domain.InboundMessage) {
	self := in.identity.SelfID()
	if msg.AuthorID == self {
		metrics.Ignored("self").Inc()
		in.logger.Debug("ignoring own message", "message_id", msg.ID)
		return
	}
	if !msg.Mentions(self) {
		metrics.Ignored("not_mentioned").Inc()
		in.logger.Debug("bot not mentioned, ignoring", "message_id", msg.ID)
		return
	}

	metrics.MessagesTotal.Inc()
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	logger := in.logger.With(
		"pass_id", uuid.NewString(),
		"channel_id", msg.ChannelID,
		"author", msg.AuthorName,
	)
	logger.Info("processing message", "message_id", msg.ID, "content_len", len(msg.Content))

	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.Inc()
			logger.Error("panic while handling message", "panic", r, "stack", string(debug.Stack()))
			in.replyError(ctx, logger, msg, fmt.Errorf("%v", r))
		}
	}()

	if err := in.process(ctx, logger, msg); err != nil {
		logger.Error("message processing failed", "error", err)
		in.replyError(ctx, logger, msg, err)
	}
}

func (in *Intake) process(ctx context.Context, logger *slog.Logger, msg domain.InboundMessage) error {
	prompt := BuildPrompt(in.tools.GetDefinitions(), msg.CleanContent)

	metrics.LLMRequestsTotal.Inc()
	start := time.Now()
	result := in.inference.GetResponse(ctx, prompt)
	metrics.LLMLatency.Observe(time.Since(start).Seconds())
	logger.Debug("inference complete", "result", fmt.Sprintf("%T", result), "duration", time.Since(start))

	return in.interpret(ctx, logger, msg, result)
}

func (in *Intake) interpret(ctx context.Context, logger *slog.Logger, msg domain.InboundMessage, result domain.InferenceResult) error {
	switch r := result.(type) {
	case nil, domain.EmptyResult:
		metrics.LLMFailures.Inc()
		return in.reply(ctx, msg, "no_thought", ReplyNoThought)
	case domain.TextResult:
		if r.Text == "" {
			metrics.LLMFailures.Inc()
			return in.reply(ctx, msg, "no_thought", ReplyNoThought)
		}
		return in.reply(ctx, msg, "text", r.Text)
	case domain.ToolCallResult:
		if r.Name != domain.ToolSendMessage {
			logger.Warn("model requested an unknown tool", "tool", r.Name)
			return in.reply(ctx, msg, "not_understood", ReplyNotUnderstood)
		}
		return in.dispatch(ctx, logger, msg, r)
	case domain.MalformedResult:
		logger.Warn("unexpected response shape from model", "raw", r.Raw)
		return in.reply(ctx, msg, "not_understood", ReplyNotUnderstood)
	default:
		return fmt.Errorf("unhandled inference result %T", result)
	}
}

func (in *Intake) dispatch(ctx context.Context, logger *slog.Logger, msg domain.InboundMessage, call domain.ToolCallResult) error {
	if in.tools.Get(domain.ToolSendMessage) == nil {
		logger.Error("send_message tool is not registered")
		return in.reply(ctx, msg, "unavailable", ReplyMessagingMissing)
	}

	out, err := in.tools.Execute(ctx, domain.ToolSendMessage, call.Arguments)
	var notFound *tool.ChannelNotFoundError
	switch {
	case errors.Is(err, domain.ErrInvalidToolCall):
		return in.reply(ctx, msg, "bad_tool_call", ReplyBadToolCall)
	case errors.As(err, &notFound):
		logger.Info("channel not found", "identifier", notFound.Identifier)
		return in.reply(ctx, msg, "channel_not_found", fmt.Sprintf(ReplyChannelNotFound, notFound.Identifier))
	case err != nil:
		return err
	}

	metrics.DispatchesTotal.Inc()
	logger.Info("tool executed", "tool", domain.ToolSendMessage, "result", out)
	return in.messenger.React(ctx, msg.ChannelID, msg.ID, ReactionSuccess)
}

func (in *Intake) reply(ctx context.Context, msg domain.InboundMessage, kind, text string) error {
	if err := in.messenger.Send(ctx, msg.ChannelID, text); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	metrics.Replies(kind).Inc()
	return nil
}

func (in *Intake) replyError(ctx context.Context, logger *slog.Logger, msg domain.InboundMessage, cause error) {
	if err := in.reply(ctx, msg, "error", fmt.Sprintf(ReplyError, cause.Error())); err != nil {
		logger.Error("cannot send error reply", "error", err)
	}
}
