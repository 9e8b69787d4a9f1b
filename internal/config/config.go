// Package config holds the bot's behavioral configuration: auto-reply rules,
// blacklists and settings. Factory defaults live in code; user customizations
// made through the dashboard are persisted to config.local.json by Manager.
package config

// DelayRange bounds the humanizing delay applied before a reply is sent,
// in whole seconds. A nil Max (or Max equal to Min) means a fixed delay.
type DelayRange struct {
	Min int  `json:"min" validate:"gte=0"`
	Max *int `json:"max" validate:"omitempty,gte=0"`
}

// Settings controls where and how the bot matches and replies.
type Settings struct {
	ReplyInGroups    bool       `json:"replyInGroups"`
	ReplyInPrivate   bool       `json:"replyInPrivate"`
	ReplyOwnMessages bool       `json:"replyOwnMessages"`
	CaseSensitive    bool       `json:"caseSensitive"`
	WholeWord        bool       `json:"wholeWord"`
	DelayRange       DelayRange `json:"delayRange"`
}

// Config is a full snapshot of the bot configuration.
type Config struct {
	AutoReplies    []Rule   `json:"autoReplies"`
	Blacklist      []string `json:"blacklist"`
	GroupBlacklist []string `json:"groupBlacklist"`
	Settings       Settings `json:"settings"`
}

// IsConfiguredResponse reports whether body is textually identical to one of
// the configured reply strings. The pipeline uses this to avoid re-triggering
// on the bot's own output when self-messages are eligible for processing.
func (c Config) IsConfiguredResponse(body string) bool {
	for _, rule := range c.AutoReplies {
		for _, resp := range rule.Responses {
			if resp == body {
				return true
			}
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

// Defaults returns the factory configuration shipped with the bot.
func Defaults() Config {
	return Config{
		AutoReplies: []Rule{
			{
				Triggers:  []TriggerGroup{{"oi"}, {"olá"}, {"ola"}, {"hey"}},
				Responses: []string{"Olá! Como posso ajudar? 😊"},
			},
			{
				Triggers:  []TriggerGroup{{"tudo bem"}, {"como vai"}, {"td bem"}},
				Responses: []string{"Tudo ótimo! E você? 👍"},
			},
			{
				Triggers:  []TriggerGroup{{"preço"}, {"preco"}, {"quanto custa"}},
				Responses: []string{"Para informações sobre preços, por favor entre em contato pelo telefone (XX) XXXXX-XXXX ou email@exemplo.com"},
			},
			{
				Triggers:  []TriggerGroup{{"horário"}, {"horario"}, {"funciona"}},
				Responses: []string{"Nosso horário de atendimento é:\n📅 Segunda a Sexta: 9h às 18h\n📅 Sábado: 9h às 13h"},
			},
		},
		Blacklist: []string{
			"oferta imperdível",
			"clique aqui",
			"ganhe dinheiro",
		},
		GroupBlacklist: []string{
			"promoções",
			"vendas",
			"spam",
		},
		Settings: Settings{
			ReplyInGroups:    true,
			ReplyInPrivate:   true,
			ReplyOwnMessages: false,
			CaseSensitive:    false,
			WholeWord:        false,
			DelayRange:       DelayRange{Min: 1, Max: intPtr(5)},
		},
	}
}
