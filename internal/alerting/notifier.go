package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Breach is one bond whose implied inflation crossed the threshold.
type Breach struct {
	BondType         string
	Maturity         time.Time
	FixedRate        decimal.Decimal
	IPCAMaturity     time.Time
	IPCARate         decimal.Decimal
	ImpliedInflation decimal.Decimal
}

// Notification carries the alert context for one reference date.
type Notification struct {
	ReferenceDate time.Time
	ThresholdPct  decimal.Decimal
	Breaches      []Breach
	Channels      []string
	AdditionalMsg string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with a plain-text rendering of note.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Time("reference_date", note.ReferenceDate).
		Int("breaches", len(note.Breaches)).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("alert sent (telegram)")
	return nil
}

func renderMessage(note Notification) string {
	const layout = "02/01/2006"

	builder := strings.Builder{}
	builder.WriteString("[Inflação Implícita]\n")
	builder.WriteString(fmt.Sprintf("Data Base: %s\n", note.ReferenceDate.Format(layout)))
	builder.WriteString(fmt.Sprintf("Threshold: %s%%\n", note.ThresholdPct.StringFixed(2)))
	for _, b := range note.Breaches {
		builder.WriteString(fmt.Sprintf("%s %s: %s%% (pre %s%% / IPCA+ %s %s%%)\n",
			b.BondType,
			b.Maturity.Format(layout),
			b.ImpliedInflation.StringFixed(2),
			b.FixedRate.StringFixed(2),
			b.IPCAMaturity.Format(layout),
			b.IPCARate.StringFixed(2),
		))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
