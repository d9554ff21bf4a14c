package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// Callback data prefixes.
const (
	CallbackApprove = "wd_approve:" // wd_approve:<entry id>
	CallbackReject  = "wd_reject:"  // wd_reject:<entry id>
)

// BuildPlayPanel creates the inline button that opens the Mini App.
func BuildPlayPanel(webAppURL, startParam string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	if webAppURL == "" {
		return markup
	}
	url := webAppURL
	if startParam != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "startapp=" + startParam
	}
	markup.Inline(markup.Row(tele.Btn{Text: "🐺 Play Wolf Tap", WebApp: &tele.WebApp{URL: url}}))
	return markup
}

// BuildReviewPanel creates the approve/reject buttons for one withdrawal.
func BuildReviewPanel(entryID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	id := strconv.FormatInt(entryID, 10)
	markup.Inline(markup.Row(
		markup.Data("✅ Approve", CallbackApprove+id),
		markup.Data("❌ Reject", CallbackReject+id),
	))
	return markup
}

// ParseReviewCallback splits review callback data into its action and entry id.
func ParseReviewCallback(data string) (approve bool, entryID int64, err error) {
	// telebot may prefix callback data with \f.
	data = strings.TrimPrefix(data, "\f")
	var raw string
	switch {
	case strings.HasPrefix(data, CallbackApprove):
		approve, raw = true, strings.TrimPrefix(data, CallbackApprove)
	case strings.HasPrefix(data, CallbackReject):
		raw = strings.TrimPrefix(data, CallbackReject)
	default:
		return false, 0, fmt.Errorf("unknown callback %q", data)
	}
	entryID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || entryID <= 0 {
		return false, 0, fmt.Errorf("invalid withdrawal id %q", raw)
	}
	return approve, entryID, nil
}
