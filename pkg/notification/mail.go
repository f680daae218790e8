package notification

import (
	"fmt"
	"net/smtp"
	"strings"
)

// MailConfig SMTP 配置
type MailConfig struct {
	Host     string `env:"MAIL_HOST"`
	Port     int    `env:"MAIL_PORT"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	From     string `env:"MAIL_FROM"`
}

// Enabled reports whether the mailer is configured at all.
func (c MailConfig) Enabled() bool { return c.Host != "" && c.From != "" }

type MailNotification struct {
	cfg MailConfig
}

func NewMailNotification(cfg MailConfig) *MailNotification {
	return &MailNotification{cfg: cfg}
}

// SendConfirmEmail 发送注册确认邮件
func (m *MailNotification) SendConfirmEmail(to, displayName, confirmURL string) error {
	subject := "Voiary 注册确认"
	body := fmt.Sprintf(
		"你好 %s，\r\n\r\n欢迎来到 Voiary 语音日记。请点击以下链接完成邮箱验证：\r\n\r\n%s\r\n\r\n如果这不是你的操作，请忽略此邮件。\r\n",
		displayName, confirmURL,
	)
	return m.send(to, subject, body)
}

func (m *MailNotification) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}
