package service

import "faq-agent/model"

// StepHandler handles a user turn for one waiting state. cmd is the
// normalised command, or empty for free text.
type StepHandler func(s model.SupportSession, u Utterance, cmd string) (model.SupportSession, Effect)

// StepRegistry maps a waiting state to its handler.
type StepRegistry map[model.SupportState]StepHandler

// Steps covers every state the support flow can wait in.
var Steps = StepRegistry{
	model.StateIdle:                    stepIdle,
	model.StateAwaitingPromptSelection: stepIdle,
	model.StateAwaitingHelpful:         stepAwaitingHelpful,
	model.StateAwaitingMoreHelp:        stepAwaitingMoreHelp,
	model.StateCollectingTicket:        stepCollectingTicket,
}
