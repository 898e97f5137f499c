package chatqueue

import (
	"testing"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

func TestResolvePriorityFromConfig(t *testing.T) {
	cfg := types.QueueConfig{
		UrgentKeywords: []string{"Urgente", "fraud"},
		HighKeywords:   []string{"cancel"},
		VIPContacts:    []string{"+55 (11) 99999-0000"},
	}
	rules := RulesFromConfig(cfg)

	tests := []struct {
		name string
		ctx  PriorityContext
		want types.Priority
	}{
		{"default normal", PriorityContext{Text: "hello"}, types.PriorityNormal},
		{"urgent keyword any case", PriorityContext{Text: "isso é URGENTE"}, types.PriorityUrgent},
		{"high keyword", PriorityContext{Text: "I want to cancel"}, types.PriorityHigh},
		{"vip contact", PriorityContext{Contact: "5511999990000@c.us"}, types.PriorityHigh},
		{"urgent beats vip", PriorityContext{Contact: "5511999990000", Text: "fraud"}, types.PriorityUrgent},
		{"hint wins", PriorityContext{Hint: types.PriorityNormal, Text: "fraud"}, types.PriorityNormal},
		{"unknown contact", PriorityContext{Contact: "5511000000000"}, types.PriorityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePriority(rules, tt.ctx); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolvePriorityNoRules(t *testing.T) {
	if got := ResolvePriority(nil, PriorityContext{Text: "urgent"}); got != types.PriorityNormal {
		t.Errorf("expected normal, got %s", got)
	}
}

func TestKeywordRuleIgnoresBlank(t *testing.T) {
	r := KeywordRule("k", []string{"", "  "}, types.PriorityUrgent)
	if r.Match(PriorityContext{Text: "anything"}) {
		t.Error("blank keywords must not match")
	}
}
