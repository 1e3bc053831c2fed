package entity

import "sort"

// Reaction is one user's emoji on one message
type Reaction struct {
	ParentId  string `json:"parent_id" gorm:"column:parent_id;primaryKey"`
	MessageId int64  `json:"message_id" gorm:"column:message_id;primaryKey;autoIncrement:false"`
	Emoji     string `json:"emoji" gorm:"column:emoji;primaryKey;size:64"`
	UserId    string `json:"user_id" gorm:"column:user_id;primaryKey"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at"`
}

// TableName returns the table name for Reaction
func (Reaction) TableName() string {
	return "chat_reactions"
}

// ReactionSummary aggregates one emoji on one message. Count includes the viewer.
type ReactionSummary struct {
	Emoji                 string   `json:"emoji"`
	Count                 int      `json:"count"`
	UserIds               []string `json:"user_ids"`
	CurrentUserHasReacted bool     `json:"current_user_has_reacted"`
}

// SummarizeReactions builds the full aggregate of one message's reactions for viewerId.
// Emojis are ordered by first use, users by time of reaction.
func SummarizeReactions(reactions []*Reaction, viewerId string) []*ReactionSummary {
	sorted := make([]*Reaction, len(reactions))
	copy(sorted, reactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt != sorted[j].CreatedAt {
			return sorted[i].CreatedAt < sorted[j].CreatedAt
		}
		if sorted[i].Emoji != sorted[j].Emoji {
			return sorted[i].Emoji < sorted[j].Emoji
		}
		return sorted[i].UserId < sorted[j].UserId
	})

	summaries := make([]*ReactionSummary, 0)
	byEmoji := make(map[string]*ReactionSummary)
	for _, r := range sorted {
		s, ok := byEmoji[r.Emoji]
		if !ok {
			s = &ReactionSummary{Emoji: r.Emoji, UserIds: make([]string, 0, 1)}
			byEmoji[r.Emoji] = s
			summaries = append(summaries, s)
		}
		s.UserIds = append(s.UserIds, r.UserId)
		s.Count++
		if r.UserId == viewerId {
			s.CurrentUserHasReacted = true
		}
	}
	return summaries
}

// ForViewer returns copies of summaries with CurrentUserHasReacted computed for viewerId
func ForViewer(summaries []*ReactionSummary, viewerId string) []*ReactionSummary {
	out := make([]*ReactionSummary, 0, len(summaries))
	for _, s := range summaries {
		c := *s
		c.CurrentUserHasReacted = false
		for _, id := range s.UserIds {
			if id == viewerId {
				c.CurrentUserHasReacted = true
				break
			}
		}
		out = append(out, &c)
	}
	return out
}

// ReactionUpdate is the payload of a reaction.update event
type ReactionUpdate struct {
	ParentId  string             `json:"parent_id"`
	MessageId int64              `json:"message_id"`
	Reactions []*ReactionSummary `json:"reactions"`
}

// ForViewer implements ViewerScoped
func (u *ReactionUpdate) ForViewer(viewerId string) any {
	return &ReactionUpdate{
		ParentId:  u.ParentId,
		MessageId: u.MessageId,
		Reactions: ForViewer(u.Reactions, viewerId),
	}
}
