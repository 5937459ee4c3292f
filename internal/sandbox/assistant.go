package sandbox

import (
	"fmt"
	"strings"

	"github.com/iksnae/hospital-console/internal/api"
)

// answer replies to question from a snapshot of the database. Replies
// are markdown.
func answer(question string, s Stats) string {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "bed", "free", "available", "occupan"):
		free := s.BedsByStatus[api.BedAvailable]
		return fmt.Sprintf("There are **%d** of %d beds available (%d occupied, %d in maintenance). "+
			"The ward with the least headroom is **%s** with %d free.",
			free, s.Beds, s.BedsByStatus[api.BedOccupied], s.BedsByStatus[api.BedMaintenance],
			orDash(s.BusiestWard), s.BusiestFree)
	case containsAny(q, "ward"):
		return fmt.Sprintf("The hospital has **%d** wards. %s currently has the least free capacity.",
			s.Wards, orDash(s.BusiestWard))
	case containsAny(q, "staff", "user", "doctor", "nurse"):
		return fmt.Sprintf("There are **%d** active user accounts.", s.Users)
	case containsAny(q, "error", "log", "incident"):
		if s.ErrorLogs == 0 {
			return "No error-level entries in the system log."
		}
		return fmt.Sprintf("The system log holds **%d** error-level entries. Run `logs list --level error` to see them.", s.ErrorLogs)
	case containsAny(q, "hello", "hi ", "hey"):
		return "Hello! Ask me about beds, wards, staff or the system log."
	default:
		return "I can answer questions about:\n\n- bed availability\n- wards\n- staff accounts\n- system log errors"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// titleFrom derives a session title from its first message.
func titleFrom(message string) string {
	message = strings.Join(strings.Fields(message), " ")
	r := []rune(message)
	if len(r) > 48 {
		return string(r[:45]) + "..."
	}
	return message
}
