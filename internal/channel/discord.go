package channel

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"relaybot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMsgLen = 2000
	sendTimeout      = 10 * time.Second
)

// MessageHandler receives every inbound message event.
type MessageHandler func(ctx context.Context, msg domain.InboundMessage)

// Discord adapts a discordgo session to the bot: it delivers inbound
// messages and implements domain.ChannelDirectory, domain.Messenger and
// domain.Identity on top of the session's state cache.
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token  string
	Logger *slog.Logger
}

// NewDiscord creates the session without connecting.
func NewDiscord(cfg DiscordConfig) (*Discord, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Discord{session: session, logger: cfg.Logger}, nil
}

// Start connects to the gateway and delivers messages to handler until ctx
// is cancelled. discordgo runs each event handler on its own goroutine.
func (d *Discord) Start(ctx context.Context, handler MessageHandler) error {
	d.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info("logged in",
			"user", r.User.String(),
			"user_id", r.User.ID,
			"mention", "<@"+r.User.ID+">",
			"guilds", len(r.Guilds),
		)
	})

	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.Author == nil {
			return
		}
		msg := toInbound(s, m.Message)
		d.logger.Debug("discord message received",
			"author", msg.AuthorName,
			"channel_id", msg.ChannelID,
			"content_len", len(msg.Content),
		)
		handler(ctx, msg)
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return d.session.Close()
}

// SelfID returns the bot's user ID, or "" before the Ready event.
func (d *Discord) SelfID() string {
	if d.session.State == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

// Channels lists every guild channel in the state cache, guild by guild,
// each guild's channels in sidebar order.
func (d *Discord) Channels() []domain.ChannelInfo {
	return channelsFromState(d.session.State)
}

// Lookup finds a visible channel by ID.
func (d *Discord) Lookup(id domain.ChannelID) (domain.ChannelInfo, bool) {
	if d.session.State == nil {
		return domain.ChannelInfo{}, false
	}
	ch, err := d.session.State.Channel(id.String())
	if err != nil {
		return domain.ChannelInfo{}, false
	}
	info, ok := channelInfo(ch)
	return info, ok
}

// Send posts content to channelID, split into 2000-character messages.
func (d *Discord) Send(ctx context.Context, channelID, content string) error {
	if channelID == "" {
		return errors.New("channel ID is empty")
	}
	if content == "" {
		return errors.New("cannot send an empty message")
	}
	for _, chunk := range splitMessage(content, discordMaxMsgLen) {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		_, err := d.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(sendCtx))
		cancel()
		if err != nil {
			return fmt.Errorf("discord send to %s: %w", channelID, err)
		}
	}
	return nil
}

// React adds a unicode emoji reaction to a message.
func (d *Discord) React(ctx context.Context, channelID, messageID, emoji string) error {
	reactCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := d.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(reactCtx)); err != nil {
		return fmt.Errorf("discord reaction on %s: %w", messageID, err)
	}
	return nil
}

func toInbound(s *discordgo.Session, m *discordgo.Message) domain.InboundMessage {
	clean, err := m.ContentWithMoreMentionsReplaced(s)
	if err != nil {
		clean = m.ContentWithMentionsReplaced()
	}

	mentions := make([]string, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		if u != nil {
			mentions = append(mentions, u.ID)
		}
	}

	return domain.InboundMessage{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		GuildID:         m.GuildID,
		AuthorID:        m.Author.ID,
		AuthorName:      m.Author.String(),
		Content:         m.Content,
		CleanContent:    clean,
		MentionIDs:      mentions,
		MentionEveryone: m.MentionEveryone,
		Timestamp:       m.Timestamp,
	}
}

func channelsFromState(state *discordgo.State) []domain.ChannelInfo {
	if state == nil {
		return nil
	}
	state.RLock()
	defer state.RUnlock()

	var out []domain.ChannelInfo
	for _, g := range state.Guilds {
		chans := slices.Clone(g.Channels)
		slices.SortStableFunc(chans, func(a, b *discordgo.Channel) int {
			return cmp.Or(
				cmp.Compare(a.Position, b.Position),
				cmp.Compare(snowflake(a.ID), snowflake(b.ID)),
			)
		})
		for _, ch := range chans {
			info, ok := channelInfo(ch)
			if !ok {
				continue
			}
			if info.GuildID == "" {
				info.GuildID = g.ID
			}
			out = append(out, info)
		}
	}
	return out
}

func snowflake(id string) domain.ChannelID {
	n, _ := domain.ParseChannelID(id)
	return n
}

func channelInfo(ch *discordgo.Channel) (domain.ChannelInfo, bool) {
	if ch == nil {
		return domain.ChannelInfo{}, false
	}
	id, err := domain.ParseChannelID(ch.ID)
	if err != nil {
		return domain.ChannelInfo{}, false
	}
	return domain.ChannelInfo{
		ID:      id,
		Name:    ch.Name,
		GuildID: ch.GuildID,
		Text:    ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews,
	}, true
}

// splitMessage splits a message into chunks of at most maxLen runes,
// preferring to cut after a newline in the second half of a chunk.
func splitMessage(msg string, maxLen int) []string {
	runes := []rune(msg)
	if len(runes) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}

		cut := maxLen
		if idx := lastIndexRune(runes[:maxLen], '\n'); idx > maxLen/2 {
			cut = idx + 1
		}

		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

var (
	_ domain.ChannelDirectory = (*Discord)(nil)
	_ domain.Messenger        = (*Discord)(nil)
	_ domain.Identity         = (*Discord)(nil)
)
