package triage

import (
	"regexp"
	"strings"

	"github.com/lexvia/case-gateway/internal/model"
)

// ActionKind is the escalation policy verdict.
type ActionKind string

const (
	ActionEscalate  ActionKind = "ESCALATE"
	ActionAutoReply ActionKind = "AUTO_REPLY"
	ActionNeutral   ActionKind = "NEUTRAL"
)

// ActionPlan is the pure output of the escalation policy. It decides, never
// mutates or sends.
type ActionPlan struct {
	Kind       ActionKind          `json:"kind"`
	NeedsHuman bool                `json:"needs_human"`
	Questions  []string            `json:"questions,omitempty"`
	SetStatus  *model.TicketStatus `json:"set_status,omitempty"`
}

// After three failed bot exchanges a human takes over.
const escalationMessageThreshold = 3

const autoReplyConfidence = 0.7

var (
	criticalPattern = regexp.MustCompile(`(amenaza|legal|fraude|cliente enojado|escala|denuncia)`)
	typicalPattern  = regexp.MustCompile(`(como|por que|error|no responde|webhook|env)`)
)

// clarifyingQuestions is the fixed follow-up the bot asks on auto-reply.
var clarifyingQuestions = []string{
	"Nombre del agente",
	"Canal y cliente impactado",
	"Error exacto o pantallazo",
}

// Decide applies the escalation policy in fixed order: URGENT priority,
// critical keywords, message-count threshold, then auto-reply on typical
// questions or sufficient confidence, else neutral.
func Decide(text string, priority model.TicketPriority, meta MetadataHints, previousMessages int64) ActionPlan {
	lower := strings.ToLower(text)

	if priority == model.TicketPriorityUrgent ||
		criticalPattern.MatchString(lower) ||
		previousMessages >= escalationMessageThreshold {
		return EscalationPlan()
	}

	if typicalPattern.MatchString(lower) || meta.Confidence >= autoReplyConfidence {
		return AutoReplyPlan(clarifyingQuestions)
	}

	return NeutralPlan()
}

// EscalationPlan marks the case for mandatory human handling. It requests no
// status change; the ticket stays where the pipeline found it until staff
// pick it up.
func EscalationPlan() ActionPlan {
	return ActionPlan{Kind: ActionEscalate, NeedsHuman: true}
}

// AutoReplyPlan asks the customer the clarifying questions and parks the
// ticket as waiting on them.
func AutoReplyPlan(questions []string) ActionPlan {
	waiting := model.TicketStatusWaitingCustomer
	return ActionPlan{Kind: ActionAutoReply, Questions: questions, SetStatus: &waiting}
}

// NeutralPlan takes no automated action.
func NeutralPlan() ActionPlan {
	return ActionPlan{Kind: ActionNeutral}
}

// ReplyText renders the auto-reply message body from the plan's questions.
func (p ActionPlan) ReplyText() string {
	if p.Kind != ActionAutoReply || len(p.Questions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Para ayudarte mejor, por favor indicanos:\n")
	for _, q := range p.Questions {
		b.WriteString("- ")
		b.WriteString(q)
		b.WriteString("\n")
	}
	return b.String()
}
