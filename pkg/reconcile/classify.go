package reconcile

import (
	"strings"

	"genstudio-be/internal/entity"
)

// Policy decides whether digital_human is assigned at save time or left to the backfill.
type Policy int

const (
	// PolicyDeferred leaves digital_human detection to the backfill's session pass.
	PolicyDeferred Policy = iota
	// PolicyImmediate assigns digital_human from the prompt directly.
	PolicyImmediate
)

// Rule maps a set of lower-case substrings to a creation type.
type Rule struct {
	Substrings []string
	Result     entity.CreationType
	// ImmediateOnly rules are skipped under PolicyDeferred.
	ImmediateOnly bool
}

func (r Rule) matches(prompt string) bool {
	for _, s := range r.Substrings {
		if strings.Contains(prompt, s) {
			return true
		}
	}
	return false
}

// DefaultRules is evaluated in order, first match wins.
var DefaultRules = []Rule{
	{
		Substrings: []string{"horizontal character sheet", "2x2 grid image", "character reference sheet"},
		Result:     entity.CreationTypeExtraction,
	},
	{
		Substrings:    []string{"digital human", "best quality"},
		Result:        entity.CreationTypeDigitalHuman,
		ImmediateOnly: true,
	},
}

type Classifier struct {
	rules []Rule
}

func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify inspects the prompt case-insensitively. No match is standard.
func (c *Classifier) Classify(prompt string, policy Policy) entity.CreationType {
	p := strings.ToLower(prompt)
	for _, rule := range c.rules {
		if rule.ImmediateOnly && policy != PolicyImmediate {
			continue
		}
		if rule.matches(p) {
			return rule.Result
		}
	}
	return entity.CreationTypeStandard
}
