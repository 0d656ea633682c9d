package core_test

import (
	"io"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lingo/core"
	appfs "github.com/trezcool/lingo/fs"
	logsvc "github.com/trezcool/lingo/services/logger"
)

func TestEmailMessage_Render(t *testing.T) {
	conf := core.NewTestConfig()
	conf.FrontendBaseURL = "https://lingo.test"
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))

	data := map[string]interface{}{
		"Name":      "Jane",
		"SkillType": "WRITING",
		"TestTitle": "Mock exam",
		"BandScore": "6.5",
		"Feedback":  "Good <b>structure</b>",
		"AttemptID": "att-1",
	}

	t.Run("layouts applied", func(t *testing.T) {
		msg := core.EmailMessage{TemplateName: "submission_graded", TemplateData: data}
		require.NoError(t, msg.Render())

		assert.Contains(t, msg.TextContent, "Hello Jane,")
		assert.Contains(t, msg.TextContent, "The Lingo team")
		assert.Contains(t, msg.TextContent, "https://lingo.test/attempts/att-1")
		assert.Contains(t, msg.HTMLContent, "<strong>Mock exam</strong>")
		assert.NotContains(t, msg.HTMLContent, "<b>structure</b>")
	})

	t.Run("layout is not a template", func(t *testing.T) {
		msg := core.EmailMessage{TemplateName: "base"}
		assert.Equal(t, core.ErrUnknownTemplate, errors.Cause(msg.Render()))
	})

	t.Run("missing key", func(t *testing.T) {
		msg := core.EmailMessage{TemplateName: "submission_graded", TemplateData: map[string]interface{}{"Name": "Jane"}}
		assert.Error(t, msg.Render())
	})
}
