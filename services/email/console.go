package emailsvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
)

var (
	// SentMessages records the messages sent by the console services.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// ResetSentMessages empties SentMessages.
func ResetSentMessages() {
	mu.Lock()
	SentMessages = make([]core.EmailMessage, 0)
	mu.Unlock()
}

func record(msg core.EmailMessage) {
	mu.Lock()
	SentMessages = append(SentMessages, msg)
	mu.Unlock()
}

// consoleService writes the messages as MIME to out instead of sending them.
type consoleService struct {
	from       mail.Address
	subjPrefix string
	out        io.Writer
	logger     core.Logger
	blocking   bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		out:        os.Stdout,
		logger:     logger,
	}
}

// NewConsoleServiceMock sends synchronously & silently, messages are recorded in SentMessages.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	svc := NewConsoleService(conf, logger).(*consoleService)
	svc.out = io.Discard
	svc.blocking = true
	return svc
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.blocking {
			svc.send(msg)
		} else {
			go svc.send(msg)
		}
	}
}

func (svc *consoleService) send(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error("rendering email", err, map[string]interface{}{"template": msg.TemplateName})
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	if err := svc.write(*msg); err != nil {
		svc.logger.Error("writing email", err)
		return
	}
	record(*msg)
}

func (svc *consoleService) write(msg core.EmailMessage) error {
	var body strings.Builder
	alt := multipart.NewWriter(&body)

	headers := [][2]string{
		{"From", svc.from.String()},
		{"To", joinAddresses(msg.To)},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + alt.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&body, "%s: %s\r\n", h[0], h[1])
	}
	body.WriteString("\r\n")

	// the preferred alternative comes last
	parts := [][2]string{{"text/plain", msg.TextContent}, {"text/html", msg.HTMLContent}}
	for _, p := range parts {
		if p[1] == "" {
			continue
		}
		w, err := alt.CreatePart(textproto.MIMEHeader{"Content-Type": {p[0] + "; charset=utf-8"}})
		if err != nil {
			return errors.Wrapf(err, "creating %s part", p[0])
		}
		fmt.Fprintf(w, "%s\r\n", p[1])
	}
	if err := alt.Close(); err != nil {
		return errors.Wrap(err, "closing multipart")
	}

	_, err := fmt.Fprintln(svc.out, body.String())
	return errors.Wrap(err, "writing message")
}

func joinAddresses(addrs []mail.Address) string {
	joined := make([]string, 0, len(addrs))
	for _, a := range addrs {
		joined = append(joined, a.String())
	}
	return strings.Join(joined, ", ")
}
