package flows

import "faq-agent/model"

// ==================== Ask an expert ====================

var AskExpert = Form{
	Kind:         model.TicketExpert,
	CardKind:     model.CardAskExpert,
	PrimaryField: "title",
	primary:      func(p model.FormPayload) string { return p.Title },
	build: func(p model.FormPayload) (string, string) {
		return p.Title, p.Description
	},
}
