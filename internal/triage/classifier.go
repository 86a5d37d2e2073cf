package triage

import (
	"regexp"
	"strings"

	"github.com/lexvia/case-gateway/internal/model"
)

// The classifier is a declarative rule table evaluated in order. Later rules
// override earlier ones within a single call; unmatched text leaves the
// existing priority/category untouched, so escalation is monotonic and a
// caller never observes a downgrade.

type rule struct {
	pattern  *regexp.Regexp
	priority model.TicketPriority
	category model.TicketCategory
}

var classifierRules = []rule{
	{pattern: regexp.MustCompile(`(urgente|producci[óo]n|ca[ií]do|no anda|error)`), priority: model.TicketPriorityHigh},
	{pattern: regexp.MustCompile(`(amenaza|legal|fraude|cliente enojado|despid|sin pagar)`), priority: model.TicketPriorityUrgent},
	{pattern: regexp.MustCompile(`(factura|pago|precio)`), category: model.CategoryBilling},
	{pattern: regexp.MustCompile(`(walter|emilia|silvia|oscar|max)`), category: model.CategoryTechSupport},
}

// Classification is the classifier output for one inbound message.
type Classification struct {
	Priority model.TicketPriority
	Category model.TicketCategory
}

// Classify derives priority and category from the message text and optional
// metadata. Pure function; remote-model substitutes must keep this contract
// and fall back to the inputs on failure.
func Classify(text string, current Classification, meta MetadataHints) Classification {
	lower := strings.ToLower(text)
	out := current

	for _, r := range classifierRules {
		if !r.pattern.MatchString(lower) {
			continue
		}
		if r.priority != "" {
			out.Priority = r.priority
		}
		if r.category != "" {
			out.Category = r.category
		}
	}

	// An explicit hint from the relay wins over any text match.
	if strings.EqualFold(meta.PriorityHint, "urgent") {
		out.Priority = model.TicketPriorityUrgent
	}

	return out
}

// InferCategory is the cold-start inference used when creating a ticket
// before any classification history exists.
func InferCategory(text string) model.TicketCategory {
	c := Classify(text, Classification{Category: model.CategoryTechSupport}, MetadataHints{})
	return c.Category
}

// MetadataHints carries the optional signals the relay may attach.
type MetadataHints struct {
	PriorityHint string
	Confidence   float64
}

// HintsFrom extracts classifier hints from an inbound event.
func HintsFrom(e model.InboundEvent) MetadataHints {
	return MetadataHints{
		PriorityHint: e.MetaPriorityHint(),
		Confidence:   e.MetaConfidence(),
	}
}
