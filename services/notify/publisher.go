// Package notifysvc delivers the core events: every event is logged, some are mailed to the learner.
package notifysvc

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/kat-co/vala"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/user"
)

const submissionGradedTmpl = "submission_graded"

type (
	// Publisher is the core.EventPublisher of the apps.
	Publisher struct {
		users  user.Repository
		mailer core.EmailService
		logger core.Logger
	}

	SubmissionGradedData struct {
		Name      string
		SkillType string
		TestTitle string
		BandScore string
		Feedback  string
		AttemptID string
	}
)

var _ core.EventPublisher = (*Publisher)(nil) // interface compliance check

func NewPublisher(users user.Repository, mailer core.EmailService, logger core.Logger) *Publisher {
	vala.BeginValidation().Validate(
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(mailer, "mailer"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Publisher{users: users, mailer: mailer, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, events ...core.Event) {
	for _, e := range events {
		p.logger.Debug("event: "+e.Name, map[string]interface{}{
			"user_id":     e.UserID,
			"resource_id": e.ResourceID,
			"data":        e.Data,
			"occurred_at": e.OccurredAt,
		})

		switch e.Name {
		case core.EventSubmissionGraded:
			p.notifyGraded(ctx, e)
		}
	}
}

// notifyGraded mails the learner whose submission has been graded.
func (p *Publisher) notifyGraded(ctx context.Context, e core.Event) {
	usr, err := p.users.GetUser(ctx, e.UserID)
	if err != nil {
		p.logger.Error("notifying graded submission", err, map[string]interface{}{"submission_id": e.ResourceID})
		return
	}
	if usr.Email == "" || !usr.IsActive {
		return
	}

	str := func(key string) string {
		if v, ok := e.Data[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	subject := "Your answer has been graded"
	if regrade, _ := e.Data["regrade"].(bool); regrade {
		subject = "Your grade has been updated"
	}

	p.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: submissionGradedTmpl,
		TemplateData: SubmissionGradedData{
			Name:      usr.Name,
			SkillType: str("skill_type"),
			TestTitle: str("test_title"),
			BandScore: str("band"),
			Feedback:  str("feedback"),
			AttemptID: str("attempt_id"),
		},
	})
}
