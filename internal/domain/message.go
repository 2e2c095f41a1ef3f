package domain

import "time"

// InboundMessage is a chat message as delivered by the platform adapter.
// It is built once per event and never mutated afterwards.
type InboundMessage struct {
	ID              string
	ChannelID       string
	GuildID         string
	AuthorID        string
	AuthorName      string
	Content         string   // raw text, mention markup intact
	CleanContent    string   // mentions resolved to display form
	MentionIDs      []string // user IDs mentioned in the message
	MentionEveryone bool
	Timestamp       time.Time
}

// Mentions reports whether userID is referenced by the message, either
// directly or through an @everyone/@here mention.
func (m InboundMessage) Mentions(userID string) bool {
	if userID == "" {
		return false
	}
	if m.MentionEveryone {
		return true
	}
	for _, id := range m.MentionIDs {
		if id == userID {
			return true
		}
	}
	return false
}
