package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleUnmarshalLegacySingleResponse(t *testing.T) {
	var r Rule
	err := json.Unmarshal([]byte(`{"triggers": ["oi", "olá"], "response": "Olá!"}`), &r)
	require.NoError(t, err)

	assert.Equal(t, []TriggerGroup{{"oi"}, {"olá"}}, r.Triggers)
	assert.Equal(t, []string{"Olá!"}, r.Responses)
	assert.False(t, r.RequireAll)
	assert.False(t, r.IsRegex)
}

func TestRuleUnmarshalResponsesArray(t *testing.T) {
	var r Rule
	err := json.Unmarshal([]byte(`{"triggers": ["oi"], "responses": ["Olá!", "Oi!"]}`), &r)
	require.NoError(t, err)

	assert.Equal(t, []string{"Olá!", "Oi!"}, r.Responses)
}

func TestRuleUnmarshalNestedTriggers(t *testing.T) {
	var r Rule
	err := json.Unmarshal([]byte(`{"triggers": [["alguém", "hoje"], ["vamos"]], "requireAll": true, "response": "Eu vou!"}`), &r)
	require.NoError(t, err)

	assert.Equal(t, []TriggerGroup{{"alguém", "hoje"}, {"vamos"}}, r.Triggers)
	assert.True(t, r.RequireAll)
}

func TestRuleUnmarshalMixedTriggerEntries(t *testing.T) {
	var r Rule
	err := json.Unmarshal([]byte(`{"triggers": ["oi", ["tudo", "bem"]], "response": "ok"}`), &r)
	require.NoError(t, err)

	assert.Equal(t, []TriggerGroup{{"oi"}, {"tudo", "bem"}}, r.Triggers)
}

func TestRuleUnmarshalRejectsBadShapes(t *testing.T) {
	var r Rule
	assert.Error(t, json.Unmarshal([]byte(`{"triggers": "oi"}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"triggers": [42]}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"triggers": ["oi"], "response": 42}`), &r))
}

func TestRuleMarshalFlatTriggersAndSingleResponse(t *testing.T) {
	r := Rule{
		Triggers:  []TriggerGroup{{"oi"}, {"olá"}},
		Responses: []string{"Olá!"},
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"triggers": ["oi", "olá"], "response": "Olá!"}`, string(data))
}

func TestRuleMarshalNestedTriggersAndResponses(t *testing.T) {
	r := Rule{
		Triggers:   []TriggerGroup{{"alguém", "hoje"}},
		Responses:  []string{"Eu vou!", "Bora!"},
		RequireAll: true,
		IsRegex:    true,
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"triggers": [["alguém", "hoje"]], "requireAll": true, "isRegex": true, "responses": ["Eu vou!", "Bora!"]}`, string(data))
}

func TestRuleMarshalRoundTrip(t *testing.T) {
	orig := Rule{
		Triggers:   []TriggerGroup{{"vaga", `\d+`}},
		Responses:  []string{"Anotado!"},
		RequireAll: true,
		IsRegex:    true,
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Rule
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, orig, back)
}

func TestIsConfiguredResponse(t *testing.T) {
	cfg := Config{AutoReplies: []Rule{
		{Responses: []string{"Olá!", "Oi!"}},
		{Responses: []string{"Tudo bem?"}},
	}}

	assert.True(t, cfg.IsConfiguredResponse("Oi!"))
	assert.True(t, cfg.IsConfiguredResponse("Tudo bem?"))
	assert.False(t, cfg.IsConfiguredResponse("oi!"), "the comparison is exact")
	assert.False(t, cfg.IsConfiguredResponse("outra coisa"))
}
