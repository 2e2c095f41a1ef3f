package domain

import (
	"context"
	"strconv"
)

// ChannelID is a platform snowflake naming a destination channel.
type ChannelID int64

func (id ChannelID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseChannelID parses a base-10 channel ID as used in platform payloads.
func ParseChannelID(s string) (ChannelID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ChannelID(n), nil
}

// ChannelInfo describes a channel visible to the bot.
type ChannelInfo struct {
	ID      ChannelID
	Name    string
	GuildID string
	Text    bool // guild text channel (as opposed to voice, category, thread...)
}

// ChannelDirectory enumerates the channels the bot can currently see.
// Implementations read live platform state; callers must not cache results.
type ChannelDirectory interface {
	// Channels returns every channel of every guild in enumeration order.
	Channels() []ChannelInfo
	// Lookup returns the channel with the given ID if it is visible.
	Lookup(id ChannelID) (ChannelInfo, bool)
}

// Messenger performs the outbound platform actions.
type Messenger interface {
	Send(ctx context.Context, channelID string, content string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// Identity exposes the bot's own user ID once the session is ready.
type Identity interface {
	SelfID() string
}
