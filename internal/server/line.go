package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"

	"github.com/meihsieh/bookship-bot/internal/bot"
)

const eventTimeout = 30 * time.Second

// LineHandler adapts LINE webhook events to the bot processor and sends
// the processor's reply text back over the messaging API.
type LineHandler struct {
	secret    string
	api       *messaging_api.MessagingApiAPI
	blob      *messaging_api.MessagingApiBlobAPI
	processor *bot.Processor
	logger    *zap.Logger
}

func NewLineHandler(channelSecret, channelToken string, logger *zap.Logger) (*LineHandler, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, err
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, err
	}
	return &LineHandler{
		secret: channelSecret,
		api:    api,
		blob:   blob,
		logger: logger,
	}, nil
}

// SetProcessor wires the bot after construction; the handler is also the
// processor's profile source, so the two reference each other.
func (h *LineHandler) SetProcessor(p *bot.Processor) {
	h.processor = p
}

// Callback is the webhook endpoint. Signature verification happens inside
// ParseRequest; events are handled concurrently, one goroutine per event,
// since per-user state is the engine's job, not the transport's.
func (h *LineHandler) Callback(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.secret, c.Request)
	if err != nil {
		h.logger.Warn("webhook parse failed", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}
	for _, event := range cb.Events {
		go h.handleEvent(event)
	}
	c.Status(http.StatusOK)
}

func (h *LineHandler) handleEvent(event webhook.EventInterface) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	me, ok := event.(webhook.MessageEvent)
	if !ok {
		return
	}
	userID := ""
	if src, ok := me.Source.(webhook.UserSource); ok {
		userID = src.UserId
	}

	var reply string
	switch msg := me.Message.(type) {
	case webhook.TextMessageContent:
		reply = h.processor.HandleText(ctx, userID, msg.Text)
	case webhook.ImageMessageContent:
		image, err := h.downloadContent(msg.Id)
		if err != nil {
			h.logger.Error("image download failed",
				zap.String("user_id", userID), zap.String("message_id", msg.Id), zap.Error(err))
			return
		}
		reply = h.processor.HandleImage(ctx, userID, image)
	default:
		return
	}
	if reply == "" {
		return
	}
	h.reply(me.ReplyToken, reply)
}

func (h *LineHandler) reply(replyToken, text string) {
	_, err := h.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		h.logger.Error("reply failed", zap.Error(err))
	}
}

func (h *LineHandler) downloadContent(messageID string) ([]byte, error) {
	resp, err := h.blob.GetMessageContent(messageID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// DisplayName implements bot.ProfileSource.
func (h *LineHandler) DisplayName(_ context.Context, userID string) (string, error) {
	profile, err := h.api.GetProfile(userID)
	if err != nil {
		return "", err
	}
	return profile.DisplayName, nil
}
