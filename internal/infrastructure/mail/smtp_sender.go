package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/jhoicas/Insumos-api/internal/domain/entity"
	"github.com/jhoicas/Insumos-api/pkg/config"
	"github.com/jhoicas/Insumos-api/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var alertTemplate = template.Must(template.ParseFS(templateFS, "templates/stock_alert.html"))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// AlertMailer envía por correo las alertas de stock crítico.
type AlertMailer struct {
	cfg        config.SMTPConfig
	recipients []string
	log        *logger.Logger
	send       sendFunc
}

// NewAlertMailer crea el mailer. Sin destinatarios las alertas solo se registran.
func NewAlertMailer(cfg config.SMTPConfig, recipients []string, log *logger.Logger) *AlertMailer {
	return &AlertMailer{cfg: cfg, recipients: recipients, log: log, send: smtp.SendMail}
}

// Handle cumple kafka.AlertHandler.
func (m *AlertMailer) Handle(ctx context.Context, a entity.StockAlert) error {
	if len(m.recipients) == 0 {
		m.log.Ctx(ctx).Warn().Str("alert_id", a.ID).Msg("sin destinatarios configurados, alerta no enviada")
		return nil
	}
	msg, err := m.buildMessage(a)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(m.cfg.Addr(), auth, m.cfg.From, m.recipients, msg); err != nil {
		return fmt.Errorf("enviar correo de alerta: %w", err)
	}
	m.log.Ctx(ctx).Info().
		Str("alert_id", a.ID).
		Str("item_code", a.ItemCode).
		Int("recipients", len(m.recipients)).
		Msg("correo de alerta enviado")
	return nil
}

func (m *AlertMailer) buildMessage(a entity.StockAlert) ([]byte, error) {
	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, a); err != nil {
		return nil, fmt.Errorf("renderizar alerta: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.recipients, ", "))
	fmt.Fprintf(&buf, "Subject: [Stock crítico] %s (%s)\r\n", a.ItemName, a.ItemCode)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}
