// Package bot dispatches inbound chat events to the intake engine and
// renders reply text. It assumes callers deliver pre-parsed (userID, text)
// or (userID, image) events; transport and signatures live one layer out.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/ocr"
	"github.com/meihsieh/bookship-bot/internal/order"
	"github.com/meihsieh/bookship-bot/internal/parse"
	"github.com/meihsieh/bookship-bot/internal/session"
)

// ProfileSource resolves a user's display name; the chat transport
// implements it.
type ProfileSource interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Processor routes commands, owns the pending-confirmation dialogue, and
// arms the one-shot OCR window.
type Processor struct {
	composer   *order.Composer
	sessions   *session.Store
	whitelist  *Whitelist
	recognizer ocr.Recognizer
	profiles   ProfileSource
	cfg        common.EngineConfig
	logRawOCR  bool
	logger     *slog.Logger

	// one-shot OCR arm per user, separate from confirmation slots so a
	// pending Y/N does not disarm a queued label upload
	ocrMu    sync.Mutex
	ocrArmed map[string]time.Time
}

type Config struct {
	Composer   *order.Composer
	Sessions   *session.Store
	Whitelist  *Whitelist
	Recognizer ocr.Recognizer
	Profiles   ProfileSource
	Engine     common.EngineConfig
	LogRawOCR  bool
	Logger     *slog.Logger
}

func NewProcessor(cfg Config) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		composer:   cfg.Composer,
		sessions:   cfg.Sessions,
		whitelist:  cfg.Whitelist,
		recognizer: cfg.Recognizer,
		profiles:   cfg.Profiles,
		cfg:        cfg.Engine,
		logRawOCR:  cfg.LogRawOCR,
		logger:     logger,
	}
}

const ocrWindow = 10 * time.Minute

// Pending-slot payloads. The slot kind says what reply is legal; the
// payload carries what the confirming handler resumes with.
type orderDisambig struct {
	draft      *parse.Draft
	tokenIndex int
	candidates []string
}

type orderProposal struct {
	draft  *parse.Draft
	titles []string
}

type stockDisambig struct {
	lines      []parse.StockLine
	tokenIndex int
	candidates []string
}

type stockConfirm struct {
	items []order.StockItem
}

// cancelConfirm keeps only the record ID: sheet rows can shift between
// the prompt and the Y, so the group is re-located at confirm time.
type cancelConfirm struct {
	recordID string
}

// HandleText processes one inbound text message and returns the reply to
// send, "" meaning stay silent.
func (p *Processor) HandleText(ctx context.Context, userID, text string) string {
	text = strings.TrimSpace(text)

	// open to everyone, so new users can request whitelisting
	if text == "我的ID" || text == "#我的ID" {
		return p.handleMyID(ctx, userID)
	}

	if reply, done := p.handlePendingAnswer(ctx, userID, text); done {
		return reply
	}

	if !p.whitelist.Authorized(ctx, userID) {
		p.logger.Info("unauthorized text", "user_id", userID)
		return "此功能僅限白名單成員使用，請輸入「我的ID」取得你的 ID 後聯絡管理員。"
	}

	switch {
	case hasAnyPrefix(text, "#寄書需求", "#寄書"):
		return p.handleNewOrder(ctx, userID, stripPrefix(text, "#寄書需求", "#寄書"))
	case hasAnyPrefix(text, "#查詢寄書", "#查寄書", "#查出書"):
		return p.handleQuery(ctx, stripPrefix(text, "#查詢寄書", "#查寄書", "#查出書"))
	case hasAnyPrefix(text, "#取消出貨"):
		return p.handleUndoShipment(ctx, userID, stripPrefix(text, "#取消出貨"))
	case hasAnyPrefix(text, "#取消寄書", "#刪除寄書"):
		return p.handleCancelRequest(ctx, userID, stripPrefix(text, "#取消寄書", "#刪除寄書"))
	case hasAnyPrefix(text, "#入庫"):
		return p.handleStockIn(ctx, userID, stripPrefix(text, "#入庫"))
	case hasAnyPrefix(text, "#出書", "#出貨"):
		p.armOCR(userID)
		return "請上傳出貨單圖片，我會進行 OCR 處理。"
	}
	// anything else: not a command, no reply
	return ""
}

// HandleImage processes one inbound image. Only a user who armed the OCR
// window gets a reconciliation pass; everyone else gets silence.
func (p *Processor) HandleImage(ctx context.Context, userID string, image []byte) string {
	if !p.whitelist.Authorized(ctx, userID) {
		p.logger.Info("unauthorized image", "user_id", userID)
		return ""
	}
	if !p.disarmOCR(userID) {
		return ""
	}

	text, err := p.recognizer.Recognize(ctx, image)
	if err != nil {
		code := common.CorrelationCode()
		p.logger.Error("ocr.recognize.failed", "user_id", userID, "code", code, "error", err)
		return renderOpaqueFailure(code)
	}
	if p.logRawOCR {
		p.logger.Info("ocr.raw_text", "user_id", userID, "text", text)
	}

	result := ocr.Reconcile(text)
	report, err := p.composer.ApplyShipment(ctx, result.Pairs, userID)
	if err != nil {
		code := common.CorrelationCode()
		p.logger.Error("ocr.apply.failed", "user_id", userID, "code", code, "error", err)
		return renderOpaqueFailure(code)
	}
	if len(report.Updated) > 0 {
		p.composer.History(ctx, userID, "出貨更新", renderShipment(report, nil, 0))
	}
	return renderShipment(report, result.Leftovers, p.cfg.LeftoverPreview)
}

func (p *Processor) handleMyID(ctx context.Context, userID string) string {
	name := "LINE使用者"
	if p.profiles != nil {
		if n, err := p.profiles.DisplayName(ctx, userID); err == nil && n != "" {
			name = n
		}
	}
	if userID != "" {
		p.whitelist.LogCandidate(ctx, userID, name)
	}
	return renderMyID(userID, name)
}

func (p *Processor) handleNewOrder(ctx context.Context, userID, body string) string {
	draft, missing := parse.OrderMessage(body)
	if len(missing) > 0 {
		return "❌ 缺少或格式錯誤的欄位：" + strings.Join(missing, "、")
	}
	out, err := p.composer.Compose(ctx, userID, draft)
	if err != nil {
		return p.opaque("order.compose", err)
	}
	return p.settleOrderOutcome(ctx, userID, draft, out)
}

// settleOrderOutcome turns a composer outcome into a reply, parking
// pending state when the outcome awaits the user.
func (p *Processor) settleOrderOutcome(ctx context.Context, userID string, draft *parse.Draft, out *order.Outcome) string {
	switch out.State {
	case order.Confirmed:
		p.composer.History(ctx, userID, "寄書建立", out.RecordID+" "+draft.Recipient)
		return renderOrderCreated(out)
	case order.AwaitingConfirmation:
		if len(out.Candidates) > 0 {
			p.sessions.Put(userID, session.Pending{
				Kind: session.BookDisambiguation,
				Payload: orderDisambig{
					draft:      draft,
					tokenIndex: out.TokenIndex,
					candidates: out.Candidates,
				},
			})
			return renderCandidates(draft.BookTokens[out.TokenIndex], out.Candidates)
		}
		p.sessions.Put(userID, session.Pending{
			Kind:    session.OrderConfirm,
			Payload: orderProposal{draft: draft, titles: out.Proposal},
		})
		return renderProposal(out.Proposal)
	default:
		return "❌ " + out.Reason
	}
}

func (p *Processor) handleQuery(ctx context.Context, keyword string) string {
	groups, err := p.composer.Query(ctx, strings.TrimSpace(keyword))
	if err != nil {
		return p.opaque("order.query", err)
	}
	return renderGroups(groups)
}

func (p *Processor) handleCancelRequest(ctx context.Context, userID, body string) string {
	keyword := strings.TrimSpace(body)
	if keyword == "" {
		return "請在指令後附上紀錄編號、收件人或電話後碼，例如：#取消寄書 R0012"
	}
	g, err := p.composer.FindCancelable(ctx, keyword)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound):
		return "查無可取消的寄書紀錄。"
	case errors.Is(err, common.ErrAmbiguous):
		return "符合條件的寄書不只一筆，請改用紀錄編號（如 R0012）。"
	case errors.Is(err, common.ErrValidation):
		return "該筆寄書已出貨，無法取消；如需退回請用 #取消出貨。"
	default:
		return p.opaque("order.cancel.find", err)
	}
	p.sessions.Put(userID, session.Pending{
		Kind:    session.CancelConfirm,
		Payload: cancelConfirm{recordID: g.RecordID},
	})
	return renderCancelPrompt(g)
}

func (p *Processor) handleUndoShipment(ctx context.Context, userID, body string) string {
	recordID := strings.TrimSpace(body)
	if recordID == "" {
		return "請在指令後附上紀錄編號，例如：#取消出貨 R0012"
	}
	g, err := p.composer.UndoShipment(ctx, recordID, userID)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound):
		return "查無此紀錄編號。"
	case errors.Is(err, common.ErrValidation):
		return "該筆寄書尚未出貨，毋需退回。"
	default:
		return p.opaque("order.undo", err)
	}
	p.composer.History(ctx, userID, "出貨退回", g.RecordID)
	return "✅ 已將 " + g.RecordID + " 退回待出貨。"
}

func (p *Processor) handleStockIn(ctx context.Context, userID, body string) string {
	lines, invalid := parse.StockMessage(body)
	if len(invalid) > 0 {
		return "❌ 以下入庫行無法解析（格式：書名 數量）：\n" + strings.Join(invalid, "\n")
	}
	if len(lines) == 0 {
		return "請在 #入庫 後逐行輸入「書名 數量」。"
	}
	out, err := p.composer.ResolveStock(ctx, lines)
	if err != nil {
		return p.opaque("stock.resolve", err)
	}
	return p.settleStockOutcome(userID, lines, out)
}

func (p *Processor) settleStockOutcome(userID string, lines []parse.StockLine, out *order.StockOutcome) string {
	switch out.State {
	case order.Confirmed:
		p.sessions.Put(userID, session.Pending{
			Kind:    session.StockInConfirm,
			Payload: stockConfirm{items: out.Items},
		})
		return renderStockPrompt(out.Items)
	case order.AwaitingConfirmation:
		p.sessions.Put(userID, session.Pending{
			Kind: session.BookDisambiguation,
			Payload: stockDisambig{
				lines:      lines,
				tokenIndex: out.TokenIndex,
				candidates: out.Candidates,
			},
		})
		return renderCandidates(lines[out.TokenIndex].BookToken, out.Candidates)
	default:
		return "❌ " + out.Reason
	}
}

func (p *Processor) opaque(op string, err error) string {
	code := common.CorrelationCode()
	p.logger.Error(op+".failed", "code", code, "error", err)
	return renderOpaqueFailure(code)
}

func (p *Processor) armOCR(userID string) {
	p.ocrMu.Lock()
	defer p.ocrMu.Unlock()
	if p.ocrArmed == nil {
		p.ocrArmed = make(map[string]time.Time)
	}
	p.ocrArmed[userID] = time.Now().Add(ocrWindow)
}

func (p *Processor) disarmOCR(userID string) bool {
	p.ocrMu.Lock()
	defer p.ocrMu.Unlock()
	deadline, ok := p.ocrArmed[userID]
	if !ok {
		return false
	}
	delete(p.ocrArmed, userID)
	return time.Now().Before(deadline)
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, pre := range prefixes {
		if strings.HasPrefix(s, pre) {
			return true
		}
	}
	return false
}

func stripPrefix(s string, prefixes ...string) string {
	for _, pre := range prefixes {
		if strings.HasPrefix(s, pre) {
			return strings.TrimSpace(strings.TrimPrefix(s, pre))
		}
	}
	return s
}
