package channel

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"relaybot/internal/domain"
)

// Resolver maps a user-supplied channel identifier to a channel ID. It
// reads the directory on every call and never caches.
type Resolver struct {
	dir    domain.ChannelDirectory
	logger *slog.Logger
}

func NewResolver(dir domain.ChannelDirectory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve returns the channel ID named by identifier. A numeric identifier
// is returned as-is without checking that the channel exists; one too large
// for a snowflake resolves to the zero ID, which no channel has. Otherwise
// the first text channel whose name matches case-insensitively, ignoring
// leading '#' characters, wins.
func (r *Resolver) Resolve(identifier string) (domain.ChannelID, bool) {
	id, err := domain.ParseChannelID(strings.TrimSpace(identifier))
	switch {
	case err == nil:
		return id, true
	case errors.Is(err, strconv.ErrRange):
		r.logger.Debug("numeric channel identifier out of range", "identifier", identifier)
		return 0, true
	}

	name := strings.ToLower(strings.TrimLeft(identifier, "#"))
	if name == "" {
		return 0, false
	}

	for _, ch := range r.dir.Channels() {
		if !ch.Text {
			continue
		}
		if strings.ToLower(ch.Name) == name {
			r.logger.Debug("channel resolved", "identifier", identifier, "channel_id", ch.ID, "guild_id", ch.GuildID)
			return ch.ID, true
		}
	}

	r.logger.Debug("channel not found", "identifier", identifier)
	return 0, false
}
