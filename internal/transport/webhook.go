package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldops/workdesk/internal/dialog"
	"github.com/fieldops/workdesk/internal/notify"
	"github.com/fieldops/workdesk/internal/observability"
)

// maxUpdateSize caps the webhook request body.
const maxUpdateSize = 1 << 20

// update is the subset of the chat platform's update we consume.
type update struct {
	UpdateID int64          `json:"update_id"`
	Message  *message       `json:"message"`
	Callback *callbackQuery `json:"callback_query"`
}

type message struct {
	Chat     chat      `json:"chat"`
	Text     string    `json:"text"`
	Document *document `json:"document"`
}

type chat struct {
	ID int64 `json:"id"`
}

type document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

type callbackQuery struct {
	Data    string   `json:"data"`
	Message *message `json:"message"`
}

type webhookHandler struct {
	controller *dialog.Controller
	notifier   notify.Notifier
	fetcher    notify.DocumentFetcher
	logger     *zap.Logger
	botToken   string
}

func newWebhookHandler(deps Dependencies) *webhookHandler {
	return &webhookHandler{
		controller: deps.Controller,
		notifier:   deps.Notifier,
		fetcher:    deps.Fetcher,
		logger:     deps.Logger,
		botToken:   deps.BotToken,
	}
}

// handle processes one webhook delivery. The platform retries non-2xx
// responses, so anything already handed to the controller answers 200
// even when prompt delivery fails.
func (h *webhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "token") != h.botToken {
		WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	var upd update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateSize)).Decode(&upd); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed update"})
		return
	}

	channel, input, ok := h.toInput(r, upd)
	if !ok {
		// Update kinds we do not consume are acknowledged and dropped.
		WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	ctx := r.Context()
	logger := observability.SessionLogger(ctx, h.logger, channel)
	prompts, err := h.controller.HandleTurn(ctx, channel, channel, input)
	if err != nil {
		logger.Error("turn processing failed",
			zap.Int64("update_id", upd.UpdateID), zap.Error(err))
		WriteError(w, err)
		return
	}

	for _, p := range prompts {
		buttons := make([]notify.Button, 0, len(p.Choices))
		for _, c := range p.Choices {
			buttons = append(buttons, notify.Button{Label: c.Label, Token: c.Token})
		}
		if err := h.notifier.Send(ctx, channel, p.Text, buttons); err != nil {
			logger.Error("prompt delivery failed", zap.Error(err))
			break
		}
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// toInput maps an update to a dialogue input. The channel id doubles as
// the session id: one conversation per chat.
func (h *webhookHandler) toInput(r *http.Request, upd update) (string, dialog.Input, bool) {
	switch {
	case upd.Callback != nil && upd.Callback.Message != nil:
		channel := strconv.FormatInt(upd.Callback.Message.Chat.ID, 10)
		return channel, dialog.ChoiceInput(upd.Callback.Data), true

	case upd.Message != nil && upd.Message.Document != nil:
		channel := strconv.FormatInt(upd.Message.Chat.ID, 10)
		content, err := h.fetcher.FetchDocument(r.Context(), upd.Message.Document.FileID)
		if err != nil {
			h.logger.Error("document download failed",
				zap.String("file_id", upd.Message.Document.FileID), zap.Error(err))
			// Hand the controller an empty document: it re-prompts.
			return channel, dialog.DocumentInput(nil), true
		}
		return channel, dialog.DocumentInput(content), true

	case upd.Message != nil:
		channel := strconv.FormatInt(upd.Message.Chat.ID, 10)
		text := strings.TrimSpace(upd.Message.Text)
		switch text {
		case "/start":
			return channel, dialog.StartInput(), true
		case "/cancel":
			return channel, dialog.CancelInput(), true
		case "":
			return "", dialog.Input{}, false
		default:
			return channel, dialog.TextInput(text), true
		}

	default:
		return "", dialog.Input{}, false
	}
}
