package domain

import (
	"sort"
	"strconv"
	"time"
)

// ThreadID derives the shared thread id of two participants.
// It is commutative so both sides resolve the same thread. The length of the
// lower id prefixes the concatenation, so ("ab", "c") and ("a", "bc") differ.
func ThreadID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strconv.Itoa(len(ids[0])) + ":" + ids[0] + ids[1]
}

// Message is one entry of a thread. Key, when set, deduplicates system-sent
// messages such as the opening message of an application.
type Message struct {
	ID        string
	SenderID  string
	Text      string
	Key       string
	CreatedAt time.Time
}

// Thread is an ordered conversation between two participants.
type Thread struct {
	ID           string
	Participants []string
	Messages     []Message
}

// HasParticipant reports whether userID belongs to the thread.
func (t *Thread) HasParticipant(userID string) bool {
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ChatSummary is one inbox row of a user.
type ChatSummary struct {
	ChatID      string
	ReceiverID  string
	LastMessage string
	UpdatedAt   time.Time
	Read        bool
}

// UpsertSummary replaces the entry for s.ChatID in place, or appends it.
func UpsertSummary(list []ChatSummary, s ChatSummary) []ChatSummary {
	for i := range list {
		if list[i].ChatID == s.ChatID {
			list[i] = s
			return list
		}
	}
	return append(list, s)
}
