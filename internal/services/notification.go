package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-signals/internal/models"
)

// Notifier announces actionable signals.
type Notifier interface {
	NotifySignal(ctx context.Context, result *models.AnalysisResult) error
}

// TelegramNotifier posts BUY/SELL alerts to a single Telegram chat
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *logrus.Logger
}

// NewTelegramNotifier creates a notifier. With an empty token or chat id the
// notifier is disabled and NotifySignal does nothing.
func NewTelegramNotifier(token string, chatID int64, logger *logrus.Logger, opts ...bot.Option) *TelegramNotifier {
	n := &TelegramNotifier{chatID: chatID, logger: logger}
	if token == "" || chatID == 0 {
		return n
	}

	telegramBot, err := bot.New(token, opts...)
	if err != nil {
		logger.WithError(err).Warn("Telegram bot initialization failed, notifications disabled")
		return n
	}
	n.bot = telegramBot
	return n
}

// Enabled reports whether messages will be sent.
func (n *TelegramNotifier) Enabled() bool {
	return n != nil && n.bot != nil
}

// NotifySignal sends the latest signal of result.
func (n *TelegramNotifier) NotifySignal(ctx context.Context, result *models.AnalysisResult) error {
	if !n.Enabled() {
		return nil
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      FormatSignalMessage(result),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"symbol":    result.Symbol,
		"timeframe": result.Timeframe,
		"signal":    result.Latest.Signal,
	}).Info("Signal notification sent")
	return nil
}

// FormatSignalMessage renders the alert text for the latest row of result.
func FormatSignalMessage(result *models.AnalysisResult) string {
	latest := result.Latest
	icon := "⚪"
	switch latest.Signal {
	case "BUY":
		icon = "🟢"
	case "SELL":
		icon = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s %s* (%s)\n\n", icon, latest.Signal, result.Symbol, result.Timeframe)
	fmt.Fprintf(&b, "💲 *Close:* %s\n", formatFloat(latest.Close, 4))
	fmt.Fprintf(&b, "💪 *Strength:* %s\n", formatFloat(latest.Strength, 3))
	fmt.Fprintf(&b, "📈 *Momentum:* %s\n", formatFloat(latest.MomentumScore, 3))
	fmt.Fprintf(&b, "📊 *Trend:* %s\n", formatFloat(latest.TrendScore, 3))
	fmt.Fprintf(&b, "🔊 *Volume:* %s\n", formatFloat(latest.VolumeScore, 3))
	fmt.Fprintf(&b, "🌪 *Volatility:* %s\n", formatFloat(latest.VolatilityScore, 3))
	fmt.Fprintf(&b, "⏰ *Candle:* %s", latest.OpenTime.UTC().Format("2006-01-02 15:04 MST"))
	return b.String()
}

func formatFloat(v models.Float, decimals int) string {
	if !v.IsDefined() {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", decimals, float64(v))
}
