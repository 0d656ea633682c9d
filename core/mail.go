package core

import (
	"bytes"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

// Template extensions, `base<ext>` of the templates dir is the layout of every template with that ext.
const (
	TextTemplateExt = ".txt"
	HTMLTemplateExt = ".gohtml"

	layoutName = "base"
)

var (
	ErrUnknownTemplate = errors.New("unknown email template")

	emailTemplates templateSet
)

type (
	// EmailMessage is a templated message, its contents are set by Render.
	EmailMessage struct {
		To      []mail.Address
		Subject string

		TemplateName string // without ext
		TemplateData interface{}

		TextContent string
		HTMLContent string
	}

	// TemplateContext is what an email template is executed with.
	TemplateContext struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages renders & sends messages without blocking the caller.
		SendMessages(messages ...*EmailMessage)
	}

	executor interface {
		Execute(w io.Writer, data interface{}) error
	}

	templateSet struct {
		mu              sync.RWMutex
		byName          map[string]map[string]executor // {name: {ext: template}}
		frontendBaseURL string
	}
)

func (ts *templateSet) lookup(name string) (map[string]executor, TemplateContext, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	tmpls, ok := ts.byName[name]
	return tmpls, TemplateContext{FrontendBaseURL: ts.frontendBaseURL}, ok
}

func (ts *templateSet) replace(byName map[string]map[string]executor, frontendBaseURL string) {
	ts.mu.Lock()
	ts.byName = byName
	ts.frontendBaseURL = frontendBaseURL
	ts.mu.Unlock()
}

// Render executes the text & HTML templates of the message.
func (m *EmailMessage) Render() error {
	tmpls, ctx, ok := emailTemplates.lookup(m.TemplateName)
	if !ok {
		return errors.Wrap(ErrUnknownTemplate, m.TemplateName)
	}
	ctx.Data = m.TemplateData

	for ext, dest := range map[string]*string{TextTemplateExt: &m.TextContent, HTMLTemplateExt: &m.HTMLContent} {
		tmpl, ok := tmpls[ext]
		if !ok {
			continue
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, ctx); err != nil {
			return errors.Wrapf(err, "executing %s%s", m.TemplateName, ext)
		}
		*dest = buf.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" || m.HTMLContent != "" }

// ParseEmailTemplates parses every `<name>.txt|.gohtml` template under dir of fsys, each one executed within the
// `base` layout of its ext. It must be called once before sending messages, templates failing to parse are skipped.
func ParseEmailTemplates(fsys fs.FS, dir string, conf *Config, logger Logger) {
	strict := conf.Debug || conf.TestMode
	byName := make(map[string]map[string]executor)

	for _, ext := range []string{TextTemplateExt, HTMLTemplateExt} {
		fps, err := fs.Glob(fsys, path.Join(dir, "*"+ext))
		if err != nil {
			logger.Error("parsing email templates", errors.Wrap(err, "globbing templates"))
			return
		}
		layout := path.Join(dir, layoutName+ext)

		for _, fp := range fps {
			name := strings.TrimSuffix(path.Base(fp), ext)
			if name == layoutName {
				continue
			}
			tmpl, err := parseTemplate(fsys, ext, strict, layout, fp)
			if err != nil {
				logger.Error("parsing email templates", errors.Wrapf(err, "parsing %s", fp))
				continue
			}
			if byName[name] == nil {
				byName[name] = make(map[string]executor)
			}
			byName[name][ext] = tmpl
		}
	}

	emailTemplates.replace(byName, conf.FrontendBaseURL)
}

// parseTemplate parses files with the template package of ext. Strict templates fail on missing keys.
func parseTemplate(fsys fs.FS, ext string, strict bool, files ...string) (executor, error) {
	missingKey := "missingkey=default"
	if strict {
		missingKey = "missingkey=error"
	}

	if ext == HTMLTemplateExt {
		tmpl, err := htmltmpl.ParseFS(fsys, files...)
		if err != nil {
			return nil, err
		}
		return tmpl.Option(missingKey), nil
	}
	tmpl, err := texttmpl.ParseFS(fsys, files...)
	if err != nil {
		return nil, err
	}
	return tmpl.Option(missingKey), nil
}
