package utils

import "strings"

// Command tokens round-tripped verbatim by the transport.
const (
	CommandYes           = "yes"
	CommandNo            = "no"
	CommandAskAnExpert   = "ask_an_expert"
	CommandShareFeedback = "share feedback"
	CommandCancel        = "cancel"
	CommandSubmitTicket  = "submit_ticket"
)

// NormalizeCommand maps user input onto a command constant, or "" for free text.
func NormalizeCommand(input string) string {
	switch NormalizeString(input) {
	case "yes", "y", "sí", "si":
		return CommandYes
	case "no", "n":
		return CommandNo
	case "ask_an_expert", "askanexpert":
		return CommandAskAnExpert
	case "sharefeedback", "share_feedback", "feedback":
		return CommandShareFeedback
	case "cancel", "cancelar":
		return CommandCancel
	}
	return ""
}

// NormalizeString lowercases s and strips all whitespace.
func NormalizeString(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case '　', ' ', '\t', '\n', '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
