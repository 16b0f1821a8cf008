package domain

import "sort"

// Between returns the messages exchanged by a and b, keeping the input order.
func Between(msgs []Message, a, b int64) []Message {
	out := []Message{}
	for _, m := range msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out
}

// UnreadFrom counts messages from sender to receiver that are not read yet.
func UnreadFrom(msgs []Message, sender, receiver int64) int {
	n := 0
	for _, m := range msgs {
		if m.SenderID == sender && m.ReceiverID == receiver && !m.IsRead {
			n++
		}
	}
	return n
}

// Thread summarizes one conversation from the point of view of a member.
type Thread struct {
	CounterpartID   int64
	CounterpartName string
	Last            Message
	Unread          int
}

// Threads groups the member's messages by counterpart, most recent conversation first.
// msgs must be in chronological order.
func Threads(msgs []Message, self int64) []Thread {
	idx := map[int64]int{}
	var out []Thread
	for _, m := range msgs {
		if !m.Involves(self) {
			continue
		}
		other, name := m.ReceiverID, m.ReceiverName
		if m.ReceiverID == self {
			other, name = m.SenderID, m.SenderName
		}
		i, ok := idx[other]
		if !ok {
			i = len(out)
			idx[other] = i
			out = append(out, Thread{CounterpartID: other})
		}
		t := &out[i]
		t.Last = m
		if name != "" {
			t.CounterpartName = name
		}
		if m.ReceiverID == self && !m.IsRead {
			t.Unread++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].Last, out[j].Last
		if li.CreatedAt.Equal(lj.CreatedAt) {
			return li.ID > lj.ID
		}
		return li.CreatedAt.After(lj.CreatedAt)
	})
	return out
}
