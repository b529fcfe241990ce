package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/plenasaude/quote-assistant/internal/config"
	"github.com/plenasaude/quote-assistant/internal/leads"
	"github.com/plenasaude/quote-assistant/internal/messaging"
	"github.com/plenasaude/quote-assistant/internal/notify"
	"github.com/plenasaude/quote-assistant/internal/observability/metrics"
	"github.com/plenasaude/quote-assistant/internal/remarketing"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// BuildSMSSender returns the Twilio sender, or nil when credentials are
// missing. A nil sender leaves remarketing messages in the event log only.
func BuildSMSSender(cfg *appconfig.Config, m *metrics.MessagingMetrics, logger *logging.Logger) remarketing.SMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		logger.Warn("twilio credentials missing; outbound sms disabled")
		return nil
	}
	return messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, m, logger)
}

// BuildEmailSender prefers SendGrid, then SES, then a logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	}, logger); sg != nil {
		logger.Info("broker email: sendgrid")
		return sg
	}
	if awsCfg != nil && cfg.EmailFrom != "" {
		logger.Info("broker email: ses")
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
	}
	logger.Warn("no email provider configured; broker emails are logged only")
	return notify.NewStubEmailSender(logger)
}

// BuildLeadQueue returns the SQS hand-off queue, or nil when no URL is set.
func BuildLeadQueue(cfg *appconfig.Config, awsCfg *aws.Config) leads.Queue {
	if awsCfg == nil || cfg.LeadQueueURL == "" {
		return nil
	}
	return leads.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.LeadQueueURL)
}
