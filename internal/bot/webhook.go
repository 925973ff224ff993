package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookAPI is the slice of *tgbotapi.BotAPI used to manage the webhook.
type WebhookAPI interface {
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RegisterWebhook points Telegram at url unless it already is. It reports
// whether a new registration was made.
func RegisterWebhook(api WebhookAPI, url, secret string, log *zap.Logger) (bool, error) {
	info, err := api.GetWebhookInfo()
	if err != nil {
		return false, SafeError("get webhook info", err)
	}
	if info.URL == url {
		log.Info("webhook already registered", zap.String("url", url), zap.Int("pending_updates", info.PendingUpdateCount))
		return false, nil
	}

	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	params.AddBool("drop_pending_updates", true)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return false, SafeError("set webhook", err)
	}
	log.Info("webhook registered", zap.String("url", url))
	return true, nil
}

// DeleteWebhook removes the registration, e.g. on shutdown or before polling.
func DeleteWebhook(api WebhookAPI) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return SafeError("delete webhook", err)
	}
	return nil
}
