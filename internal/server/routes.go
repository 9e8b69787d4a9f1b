package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"zapbot/internal/config"
)

func registerRoutes(r chi.Router, d Deps) {
	r.Get("/api/status", statusHandler(d))

	r.Get("/api/config", getConfigHandler(d))
	r.Post("/api/config", saveConfigHandler(d))
	r.Post("/api/config/reset", resetConfigHandler(d))

	r.Post("/api/respostas", addRuleHandler(d))
	r.Put("/api/respostas/{index}", updateRuleHandler(d))
	r.Delete("/api/respostas/{index}", deleteRuleHandler(d))

	r.Get("/api/historico", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Replies.Snapshot())
	})
	r.Delete("/api/historico", func(w http.ResponseWriter, _ *http.Request) {
		d.Replies.Clear()
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Histórico limpo com sucesso!"})
	})

	r.Get("/api/mensagens", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Messages.Snapshot())
	})
	r.Delete("/api/mensagens", func(w http.ResponseWriter, _ *http.Request) {
		d.Messages.Clear()
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Histórico de mensagens limpo com sucesso!"})
	})

	r.Post("/api/bot/iniciar", startBotHandler(d))
	r.Post("/api/bot/parar", stopBotHandler(d))

	r.Get("/ws", wsHandler(d))
}

func statusHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		uptime := "inativo"
		if d.Bot.Running() {
			uptime = "ativo"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": d.Bot.Status(),
			"qrcode": d.Bot.QRCode(),
			"uptime": uptime,
		})
	}
}

func getConfigHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Manager.Load())
	}
}

func saveConfigHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeJSON(w, http.StatusBadRequest, result{Message: err.Error()})
			return
		}
		if _, err := d.Manager.Save(cfg); err != nil {
			writeJSON(w, http.StatusInternalServerError, result{Message: err.Error()})
			return
		}
		d.Log.Info().Msg("configuration updated via dashboard")
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Configurações salvas com sucesso!"})
	}
}

func resetConfigHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		cfg, err := d.Manager.Reset()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, result{Message: err.Error()})
			return
		}
		d.Log.Info().Msg("configuration reset to defaults")
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Configurações restauradas para os padrões!", Config: cfg})
	}
}

func addRuleHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rule config.Rule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeJSON(w, http.StatusBadRequest, result{Message: err.Error()})
			return
		}

		cfg := d.Manager.Load()
		cfg.AutoReplies = append(cfg.AutoReplies, rule)
		if _, err := d.Manager.Save(cfg); err != nil {
			writeJSON(w, http.StatusInternalServerError, result{Message: err.Error()})
			return
		}
		d.Log.Info().Msg("auto-reply rule added via dashboard")
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Resposta adicionada com sucesso!"})
	}
}

func updateRuleHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, result{Message: "índice inválido"})
			return
		}

		var rule config.Rule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeJSON(w, http.StatusBadRequest, result{Message: err.Error()})
			return
		}

		cfg := d.Manager.Load()
		if index < 0 || index >= len(cfg.AutoReplies) {
			writeJSON(w, http.StatusNotFound, result{Message: "Resposta não encontrada"})
			return
		}
		cfg.AutoReplies[index] = rule
		if _, err := d.Manager.Save(cfg); err != nil {
			writeJSON(w, http.StatusInternalServerError, result{Message: err.Error()})
			return
		}
		d.Log.Info().Int("index", index).Msg("auto-reply rule updated via dashboard")
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Resposta atualizada com sucesso!"})
	}
}

func deleteRuleHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, result{Message: "índice inválido"})
			return
		}

		cfg := d.Manager.Load()
		if index < 0 || index >= len(cfg.AutoReplies) {
			writeJSON(w, http.StatusNotFound, result{Message: "Resposta não encontrada"})
			return
		}
		cfg.AutoReplies = append(cfg.AutoReplies[:index], cfg.AutoReplies[index+1:]...)
		if _, err := d.Manager.Save(cfg); err != nil {
			writeJSON(w, http.StatusInternalServerError, result{Message: err.Error()})
			return
		}
		d.Log.Info().Int("index", index).Msg("auto-reply rule removed via dashboard")
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Resposta removida com sucesso!"})
	}
}

func startBotHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if d.Bot.Running() {
			writeJSON(w, http.StatusOK, result{Message: "Bot já está em execução"})
			return
		}
		// The session outlives the request, so it gets its own context.
		if err := d.Bot.Start(context.Background()); err != nil {
			writeJSON(w, http.StatusInternalServerError, result{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Bot iniciado com sucesso!"})
	}
}

func stopBotHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !d.Bot.Stop() {
			writeJSON(w, http.StatusOK, result{Message: "Bot não está em execução"})
			return
		}
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Bot parado com sucesso!"})
	}
}
