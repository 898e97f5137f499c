package chatqueue

import (
	"strings"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

// PriorityContext is what priority rules are evaluated against
type PriorityContext struct {
	ChatID  string
	Hint    types.Priority
	Text    string
	Contact string
}

// Rule maps a predicate to the priority it assigns
type Rule struct {
	Name     string
	Match    func(PriorityContext) bool
	Priority types.Priority
}

// ResolvePriority evaluates rules in order; the first match wins, default is normal
func ResolvePriority(rules []Rule, ctx PriorityContext) types.Priority {
	for _, r := range rules {
		if r.Match != nil && r.Match(ctx) {
			return r.Priority
		}
	}
	return types.PriorityNormal
}

// HintRule honours an explicit priority hint
func HintRule() []Rule {
	rules := make([]Rule, 0, len(types.AllPriorities))
	for _, p := range types.AllPriorities {
		p := p
		rules = append(rules, Rule{
			Name:     "hint_" + string(p),
			Priority: p,
			Match:    func(c PriorityContext) bool { return c.Hint == p },
		})
	}
	return rules
}

// KeywordRule matches when the message text contains any keyword, case-insensitively
func KeywordRule(name string, keywords []string, p types.Priority) Rule {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return Rule{
		Name:     name,
		Priority: p,
		Match: func(c PriorityContext) bool {
			text := strings.ToLower(c.Text)
			for _, k := range lowered {
				if strings.Contains(text, k) {
					return true
				}
			}
			return false
		},
	}
}

// ContactRule matches contacts in the given list, ignoring formatting characters
func ContactRule(name string, contacts []string, p types.Priority) Rule {
	set := make(map[string]bool, len(contacts))
	for _, c := range contacts {
		if n := normalizeContact(c); n != "" {
			set[n] = true
		}
	}
	return Rule{
		Name:     name,
		Priority: p,
		Match: func(c PriorityContext) bool {
			return set[normalizeContact(c.Contact)]
		},
	}
}

// RulesFromConfig builds the rule list: hint, urgent keywords, VIP contacts, high keywords
func RulesFromConfig(cfg types.QueueConfig) []Rule {
	rules := HintRule()
	rules = append(rules,
		KeywordRule("urgent_keyword", cfg.UrgentKeywords, types.PriorityUrgent),
		ContactRule("vip_contact", cfg.VIPContacts, types.PriorityHigh),
		KeywordRule("high_keyword", cfg.HighKeywords, types.PriorityHigh),
	)
	return rules
}

// normalizeContact keeps digits only, so "+55 (11) 99999-0000" and
// "5511999990000@c.us" compare equal
func normalizeContact(c string) string {
	if i := strings.IndexByte(c, '@'); i >= 0 {
		c = c[:i]
	}
	var b strings.Builder
	for _, r := range c {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
