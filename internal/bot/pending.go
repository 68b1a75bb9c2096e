package bot

import (
	"context"
	"errors"

	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/session"
)

// handlePendingAnswer consumes the user's pending slot, if any. done=true
// means the text was an answer (or a refusal) and was fully handled;
// done=false means there was no slot, or the slot was discarded because the
// text is something else — the caller then treats the text as fresh input.
// A discarded slot never sees a later stray reply: Take removes it here.
func (p *Processor) handlePendingAnswer(ctx context.Context, userID, text string) (string, bool) {
	pending, ok := p.sessions.Take(userID)
	if !ok {
		return "", false
	}
	reply, n := session.ParseReply(text)

	if reply == session.ReplyOther {
		// new full command or unrelated chatter supersedes the slot
		return "", false
	}
	if reply == session.ReplyIndex && pending.Kind != session.BookDisambiguation {
		// integers answer disambiguation lists only; to a Y/N slot they are
		// just another stray input and discard it
		return "", false
	}
	if reply == session.ReplyNo {
		return "已取消，未做任何變更。", true
	}

	switch pending.Kind {
	case session.BookDisambiguation:
		return p.answerDisambiguation(ctx, userID, pending, reply, n)
	case session.OrderConfirm:
		prop := pending.Payload.(orderProposal)
		out, err := p.composer.Finalize(ctx, userID, prop.draft, prop.titles)
		if err != nil {
			return p.opaque("order.finalize", err), true
		}
		return p.settleOrderOutcome(ctx, userID, prop.draft, out), true
	case session.StockInConfirm:
		sc := pending.Payload.(stockConfirm)
		if err := p.composer.WriteStock(ctx, sc.items, userID); err != nil {
			return p.opaque("stock.write", err), true
		}
		p.composer.History(ctx, userID, "入庫", renderStockPrompt(sc.items))
		return "✅ 入庫完成。", true
	case session.CancelConfirm:
		cc := pending.Payload.(cancelConfirm)
		// re-locates and cancels atomically; rows may have shifted since
		// the prompt
		g, err := p.composer.CancelByID(ctx, cc.recordID, userID)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrValidation):
			return "該筆寄書狀態已變更，取消中止。", true
		case errors.Is(err, common.ErrNotFound):
			return "查無可取消的寄書紀錄，取消中止。", true
		default:
			return p.opaque("order.cancel", err), true
		}
		p.composer.History(ctx, userID, "寄書取消", g.RecordID)
		return "✅ 已取消 " + g.RecordID + "。", true
	}
	return "", false
}

// answerDisambiguation substitutes the chosen candidate and re-enters the
// resolving pass that parked the slot.
func (p *Processor) answerDisambiguation(ctx context.Context, userID string, pending session.Pending, reply session.Reply, n int) (string, bool) {
	if reply != session.ReplyIndex {
		p.sessions.Put(userID, pending)
		return "請以數字回覆候選編號，或回覆 N 取消。", true
	}
	switch payload := pending.Payload.(type) {
	case orderDisambig:
		if n > len(payload.candidates) {
			p.sessions.Put(userID, pending)
			return "編號超出範圍，請重新選擇。", true
		}
		payload.draft.BookTokens[payload.tokenIndex] = payload.candidates[n-1]
		out, err := p.composer.Compose(ctx, userID, payload.draft)
		if err != nil {
			return p.opaque("order.compose", err), true
		}
		return p.settleOrderOutcome(ctx, userID, payload.draft, out), true
	case stockDisambig:
		if n > len(payload.candidates) {
			p.sessions.Put(userID, pending)
			return "編號超出範圍，請重新選擇。", true
		}
		payload.lines[payload.tokenIndex].BookToken = payload.candidates[n-1]
		out, err := p.composer.ResolveStock(ctx, payload.lines)
		if err != nil {
			return p.opaque("stock.resolve", err), true
		}
		return p.settleStockOutcome(userID, payload.lines, out), true
	}
	return "", false
}
