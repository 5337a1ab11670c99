package utils

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends account emails over SMTP. When SMTP is not configured the
// message is logged instead of sent.
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
	Log      *zap.Logger
}

func (m *Mailer) configured() bool {
	return m.Username != "" && m.Password != "" && m.Host != "" && m.Port != ""
}

func (m *Mailer) SendVerificationEmail(recipient, name, link string) error {
	subject := "আপনার ইমেইল যাচাই করুন"
	plain := fmt.Sprintf(
		"প্রিয় %s,\n\n"+
			"আপনার অ্যাকাউন্ট সক্রিয় করতে নিচের লিংকে ক্লিক করুন:\n%s\n\n"+
			"আপনি যদি অ্যাকাউন্ট না খুলে থাকেন তবে এই ইমেইলটি উপেক্ষা করুন।\n",
		safeLine(name), safeLine(link),
	)
	return m.send(recipient, subject, plain, link)
}

func (m *Mailer) SendPasswordResetEmail(recipient, link string) error {
	subject := "পাসওয়ার্ড রিসেট"
	plain := fmt.Sprintf(
		"পাসওয়ার্ড রিসেট করতে নিচের লিংকে ক্লিক করুন (১ ঘণ্টা পর্যন্ত বৈধ):\n%s\n\n"+
			"আপনি অনুরোধ না করে থাকলে এই ইমেইলটি উপেক্ষা করুন।\n",
		safeLine(link),
	)
	return m.send(recipient, subject, plain, link)
}

func safeLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\r\n", " ")
}

func (m *Mailer) send(recipient, subject, plainBody, link string) error {
	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}
	if !m.configured() {
		log.Info("[MOCK EMAIL]", zap.String("to", MaskEmail(recipient)), zap.String("subject", subject), zap.String("link", link))
		return nil
	}

	from := fmt.Sprintf("%s <%s>", m.FromName, m.Username)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", recipient))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(plainBody)

	if err := smtp.SendMail(addr, auth, m.Username, []string{recipient}, []byte(sb.String())); err != nil {
		log.Error("failed to send email", zap.String("to", MaskEmail(recipient)), zap.Error(err))
		return err
	}
	log.Info("email sent", zap.String("to", MaskEmail(recipient)), zap.String("subject", subject))
	return nil
}
