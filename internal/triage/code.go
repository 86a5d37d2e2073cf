package triage

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const codePrefix = "RCL"

// GenerateTicketCode builds the human-readable ticket code, e.g.
// RCL-2025-0130-482913. The 6-digit suffix is pseudo-random; collisions are
// possible but acceptable since the code is a display label, not a key.
func GenerateTicketCode(date time.Time) string {
	return fmt.Sprintf("%s-%d-%02d%02d-%06d",
		codePrefix, date.Year(), int(date.Month()), date.Day(), rand.Intn(1_000_000))
}

// TitleFromText derives a ticket title from the first words of the seed
// message. Falls back to a generic label for empty input.
func TitleFromText(text string) string {
	const maxWords = 8
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "Consulta"
	}
	if len(fields) > maxWords {
		fields = fields[:maxWords]
	}
	return strings.Join(fields, " ")
}
