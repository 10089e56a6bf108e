package flows

import (
	"fmt"

	"faq-agent/model"
)

// ==================== Share feedback ====================

const (
	RatingHelpful          = "Helpful"
	RatingNeedsImprovement = "NeedsImprovement"
	RatingNotHelpful       = "NotHelpful"
)

var ShareFeedback = Form{
	Kind:         model.TicketFeedback,
	CardKind:     model.CardShareFeedback,
	PrimaryField: "rating",
	primary:      func(p model.FormPayload) string { return p.Rating },
	check: func(p model.FormPayload) error {
		switch p.Rating {
		case RatingHelpful, RatingNeedsImprovement, RatingNotHelpful:
			return nil
		}
		return fmt.Errorf("%w: rating %q", ErrInvalidField, p.Rating)
	},
	build: func(p model.FormPayload) (string, string) {
		return "Feedback: " + p.Rating, p.Description
	},
}
