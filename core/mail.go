package core

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

const (
	extText = ".txt"
	extHTML = ".gohtml"
)

var (
	templates   = make(tmplCache)
	templatesMu sync.RWMutex
	frontendURL string
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName     string // without ext
		FallbackTemplate string // used when TemplateName has not been parsed
		TemplateData     interface{}
		TextContent      string
		HTMLContent      string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages renders and sends messages, returning the first delivery error.
		SendMessages(ctx context.Context, messages ...*EmailMessage) error
	}
)

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		FrontendBaseURL: frontendURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	templatesMu.RLock()
	defer templatesMu.RUnlock()

	for _, name := range []string{m.TemplateName, m.FallbackTemplate} {
		if name == "" {
			continue
		}
		if entry, ok := templates[name]; ok {
			if tmpl, ok := entry[ext]; ok {
				return tmpl, true
			}
		}
	}
	return nil, false
}

func (m *EmailMessage) renderText() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(extText)
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML() error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(extHTML)
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	if err := m.renderText(); err != nil {
		return errors.Wrap(err, "rendering text")
	}
	return errors.Wrap(m.renderHTML(), "rendering html")
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates loads the email templates found under <WorkDir>/assets/templates/email.
func ParseEmailTemplates(conf *Config, logger Logger) {
	dir := filepath.Join(conf.WorkDir, "assets", "templates", "email")
	if err := ParseEmailTemplatesDir(dir, conf.FrontendBaseURL, conf.Debug || conf.TestMode); err != nil {
		logger.Error("parsing email templates", err)
	}
}

// ParseEmailTemplatesDir parses every `name.txt` / `name.gohtml` pair of dir along with its `_base` layout.
// Files starting with "_" are layouts and are not registered on their own.
func ParseEmailTemplatesDir(dir, baseURL string, strict bool) error {
	fps, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return errors.Wrap(err, "listing templates")
	}

	parsed := make(tmplCache)
	for _, fp := range fps {
		fname := filepath.Base(fp)
		ext := filepath.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == extText || ext == extHTML) {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := parsed[name]
		if !ok {
			entry = make(tmplCacheEntry)
			parsed[name] = entry
		}

		files := []string{fp}
		if base := filepath.Join(dir, "_base"+ext); fileExists(base) {
			files = []string{base, fp}
		}
		if ext == extText {
			tmpl, err := texttmpl.ParseFiles(files...)
			if err != nil {
				return errors.Wrapf(err, "parsing %s", fname)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFiles(files...)
			if err != nil {
				return errors.Wrapf(err, "parsing %s", fname)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}

	templatesMu.Lock()
	templates = parsed
	frontendURL = baseURL
	templatesMu.Unlock()
	return nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
