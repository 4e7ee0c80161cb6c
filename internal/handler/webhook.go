package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eleccia/chatbot-engine/internal/middleware"
	"github.com/eleccia/chatbot-engine/internal/service"
	"github.com/eleccia/chatbot-engine/pkg/logger"
)

// WebhookHandler receives channel callbacks and direct chat requests and
// feeds them to the engine. Channel webhooks always acknowledge with 200 so
// the platform does not retry; engine failures surface as a generic apology.
type WebhookHandler struct {
	engine      *service.Engine
	verifyToken string
	logger      *logger.Logger
}

func NewWebhookHandler(engine *service.Engine, verifyToken string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine:      engine,
		verifyToken: verifyToken,
		logger:      log,
	}
}

type webhookReply struct {
	Reply string `json:"reply"`
}

// Telegram handles POST /webhook/telegram.
func (h *WebhookHandler) Telegram(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in, ok := normalizeTelegram(body)
	if !ok {
		writeJSON(w, http.StatusOK, webhookReply{Reply: "Mensaje no válido o vacío"})
		return
	}
	h.dispatch(w, r, in)
}

// WhatsAppVerify handles GET /webhook/whatsapp, the Meta webhook handshake.
func (h *WebhookHandler) WhatsAppVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	w.WriteHeader(http.StatusForbidden)
}

// WhatsApp handles POST /webhook/whatsapp.
func (h *WebhookHandler) WhatsApp(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in, ok := normalizeWhatsApp(body)
	if !ok {
		writeJSON(w, http.StatusOK, webhookReply{Reply: "Mensaje no válido o vacío"})
		return
	}
	h.dispatch(w, r, in)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Canal   string `json:"canal,omitempty"`
}

// Chat handles POST /api/chat, the direct API channel.
func (h *WebhookHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := middleware.ValidateUserID(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	canal := req.Canal
	if canal == "" {
		canal = "api"
	}

	reply, err := h.engine.HandleMessage(r.Context(), service.TurnInput{
		UserID: strings.TrimSpace(req.UserID),
		Canal:  canal,
		Text:   req.Message,
	})
	if err != nil {
		h.logger.WithUser(req.UserID).Error("chat turn failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, webhookReply{Reply: reply})
}

// dispatch feeds a normalized channel message to the engine. Channel
// webhooks get a 200 even on engine failure.
func (h *WebhookHandler) dispatch(w http.ResponseWriter, r *http.Request, in service.TurnInput) {
	if err := middleware.ValidateUserID(in.UserID); err != nil {
		writeJSON(w, http.StatusOK, webhookReply{Reply: "Mensaje no válido o vacío"})
		return
	}
	if err := middleware.ValidateMessageContent(in.Text); err != nil {
		writeJSON(w, http.StatusOK, webhookReply{Reply: "Por favor, envía un mensaje con texto."})
		return
	}

	reply, err := h.engine.HandleMessage(r.Context(), in)
	if err != nil {
		h.logger.WithContext(middleware.GetCorrelationID(r.Context()), in.Canal, in.UserID).
			Error("webhook turn failed", zap.Error(err))
		writeJSON(w, http.StatusOK, webhookReply{Reply: "Lo siento, ha ocurrido un error al procesar tu consulta. Por favor, intenta de nuevo."})
		return
	}
	writeJSON(w, http.StatusOK, webhookReply{Reply: reply})
}

// normalizeTelegram extracts the chat id and text from a Telegram update.
// A flat {chat_id, text} body is also accepted for testing.
func normalizeTelegram(body map[string]json.RawMessage) (service.TurnInput, bool) {
	if raw, ok := body["message"]; ok {
		var msg struct {
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
			From struct {
				Username  string `json:"username"`
				FirstName string `json:"first_name"`
			} `json:"from"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Chat.ID == 0 {
			return service.TurnInput{}, false
		}
		usuario := msg.From.Username
		if usuario == "" {
			usuario = msg.From.FirstName
		}
		in := service.TurnInput{
			UserID:  strconv.FormatInt(msg.Chat.ID, 10),
			Canal:   "telegram",
			Text:    strings.TrimSpace(msg.Text),
			Usuario: usuario,
		}
		return in, in.Text != ""
	}
	return normalizeFlat(body, "telegram")
}

// normalizeWhatsApp extracts the sender and text from a WhatsApp Business
// webhook. Non-text message types map to an unsupported-type notice so the
// user still gets an answer.
func normalizeWhatsApp(body map[string]json.RawMessage) (service.TurnInput, bool) {
	raw, ok := body["entry"]
	if !ok {
		return normalizeFlat(body, "whatsapp")
	}

	var entries []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return service.TurnInput{}, false
	}
	for _, entry := range entries {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) == 0 {
				continue
			}
			msg := change.Value.Messages[0]
			if msg.From == "" {
				return service.TurnInput{}, false
			}
			in := service.TurnInput{
				UserID:         msg.From,
				Canal:          "whatsapp",
				NumeroTelefono: msg.From,
			}
			if len(change.Value.Contacts) > 0 {
				in.Usuario = change.Value.Contacts[0].Profile.Name
			}
			if msg.Type != "text" {
				in.Text = "Lo siento, solo puedo procesar mensajes de texto por el momento."
				return in, true
			}
			in.Text = strings.TrimSpace(msg.Text.Body)
			return in, in.Text != ""
		}
	}
	return service.TurnInput{}, false
}

func normalizeFlat(body map[string]json.RawMessage, canal string) (service.TurnInput, bool) {
	rawID, okID := body["chat_id"]
	rawText, okText := body["text"]
	if !okID || !okText {
		return service.TurnInput{}, false
	}
	var text string
	if err := json.Unmarshal(rawText, &text); err != nil {
		return service.TurnInput{}, false
	}
	var userID string
	if err := json.Unmarshal(rawID, &userID); err != nil {
		var numeric int64
		if err := json.Unmarshal(rawID, &numeric); err != nil {
			return service.TurnInput{}, false
		}
		userID = strconv.FormatInt(numeric, 10)
	}
	in := service.TurnInput{
		UserID: userID,
		Canal:  canal,
		Text:   strings.TrimSpace(text),
	}
	return in, in.UserID != "" && in.Text != ""
}
