package config

import (
	"encoding/json"
	"fmt"
)

// TriggerGroup is one trigger entry of a rule. Plain rules carry exactly one
// term per group; rules with RequireAll carry N sub-terms that must all match.
type TriggerGroup []string

// Rule is an auto-reply rule in resolved form. The stored JSON is duck-typed
// (legacy single-string response, flat or nested trigger arrays); the shape is
// resolved once here, at load time, never re-branched during matching.
type Rule struct {
	Triggers   []TriggerGroup
	Responses  []string
	RequireAll bool
	IsRegex    bool
}

type ruleJSON struct {
	Triggers   json.RawMessage `json:"triggers"`
	Response   json.RawMessage `json:"response,omitempty"`
	Responses  json.RawMessage `json:"responses,omitempty"`
	RequireAll bool            `json:"requireAll,omitempty"`
	IsRegex    bool            `json:"isRegex,omitempty"`
}

// UnmarshalJSON accepts every historical rule shape:
//
//	{"triggers": ["oi", "olá"], "response": "Olá!"}
//	{"triggers": ["oi"], "responses": ["Olá!", "Oi!"]}
//	{"triggers": [["alguém", "hoje"]], "requireAll": true, "response": "Eu vou!"}
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw ruleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	triggers, err := parseTriggers(raw.Triggers)
	if err != nil {
		return err
	}

	responses, err := parseResponses(raw.Responses, raw.Response)
	if err != nil {
		return err
	}

	r.Triggers = triggers
	r.Responses = responses
	r.RequireAll = raw.RequireAll
	r.IsRegex = raw.IsRegex
	return nil
}

// MarshalJSON writes the canonical on-disk form: flat trigger strings for
// plain rules, nested arrays for conjunctive ones, "response" when there is a
// single reply and "responses" when there are several.
func (r Rule) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4)

	if r.RequireAll {
		groups := make([][]string, 0, len(r.Triggers))
		for _, g := range r.Triggers {
			groups = append(groups, []string(g))
		}
		out["triggers"] = groups
		out["requireAll"] = true
	} else {
		flat := make([]string, 0, len(r.Triggers))
		for _, g := range r.Triggers {
			if len(g) > 0 {
				flat = append(flat, g[0])
			}
		}
		out["triggers"] = flat
	}

	if len(r.Responses) == 1 {
		out["response"] = r.Responses[0]
	} else {
		out["responses"] = r.Responses
	}

	if r.IsRegex {
		out["isRegex"] = true
	}

	return json.Marshal(out)
}

func parseTriggers(raw json.RawMessage) ([]TriggerGroup, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("triggers must be an array: %w", err)
	}

	groups := make([]TriggerGroup, 0, len(entries))
	for i, entry := range entries {
		var single string
		if err := json.Unmarshal(entry, &single); err == nil {
			groups = append(groups, TriggerGroup{single})
			continue
		}
		var multi []string
		if err := json.Unmarshal(entry, &multi); err == nil {
			groups = append(groups, TriggerGroup(multi))
			continue
		}
		return nil, fmt.Errorf("trigger %d: expected string or string array", i)
	}
	return groups, nil
}

func parseResponses(responses, response json.RawMessage) ([]string, error) {
	for _, raw := range [][]byte{responses, response} {
		if len(raw) == 0 {
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			return []string{single}, nil
		}
		var multi []string
		if err := json.Unmarshal(raw, &multi); err == nil {
			return multi, nil
		}
		return nil, fmt.Errorf("response must be a string or string array")
	}
	return nil, nil
}
