package emailsvc

import (
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/lingo/core"
)

type sendgridService struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		client:     sendgrid.NewSendClient(conf.SendgridApiKey),
		from:       sgEmail(conf.DefaultFromEmail()),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.send(msg)
	}
}

func (svc *sendgridService) send(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error("rendering email", err, map[string]interface{}{"template": msg.TemplateName})
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	res, err := svc.client.Send(svc.prepare(*msg))
	if err != nil {
		svc.logger.Error("sending email", errors.Wrap(err, "calling sendgrid"), map[string]interface{}{"template": msg.TemplateName})
		return
	}
	if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error("sending email", map[string]interface{}{
			"template": msg.TemplateName,
			"status":   res.StatusCode,
			"body":     res.Body,
		})
	}
}

// prepare builds one personalization per recipient, the message is categorized by its template.
func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddCategories(msg.TemplateName)

	for _, to := range msg.To {
		p := sgmail.NewPersonalization()
		p.Subject = svc.subjPrefix + msg.Subject
		p.AddTos(sgEmail(to))
		m.AddPersonalizations(p)
	}

	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}
