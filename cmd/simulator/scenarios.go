package main

import "time"

// step is either a customer message or a pause after which the remarketing
// sweep runs.
type step struct {
	text  string
	pause time.Duration
}

func say(texts ...string) []step {
	steps := make([]step, len(texts))
	for i, t := range texts {
		steps[i] = step{text: t}
	}
	return steps
}

func wait(d time.Duration) step {
	return step{pause: d}
}

type scenario struct {
	name      string
	sessionID string
	steps     []step
}

func concat(parts ...[]step) []step {
	var out []step
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var scenarios = []scenario{
	{
		name:      "family",
		sessionID: "+5511999990000",
		steps:     say("Hi", "Maria", "11999990000", "m@x.com", "2", "4", "35,32,5,3", "2", "2", "2", "1", "yes"),
	},
	{
		name:      "business",
		sessionID: "+5511988887777",
		steps: say("Hi", "João Silva", "11988887777", "j@acme.com", "3", "Acme Ltda", "yes",
			"3", "30,40,50", "1", "2", "1", "2", "yes"),
	},
	{
		name:      "faq",
		sessionID: "+5511977776666",
		steps: say("Hi", "Ana", "11977776666", "what is the grace period?", "ana@x.com",
			"1", "1", "28", "which documents do I need?", "3", "1", "Hospital São Camilo", "3", "2", "when does coverage start?", "no"),
	},
	{
		name:      "remarketing",
		sessionID: "+5511966665555",
		steps: concat(
			say("Hi", "Carlos Souza", "11966665555", "c@x.com", "2", "2", "40,38", "2", "2"),
			[]step{wait(25 * time.Hour), wait(25 * time.Hour)},
			say("I'm back", "2", "1", "yes"),
		),
	},
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}
