package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
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
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	// EmailTemplates holds the parsed email templates, keyed by name then extension.
	EmailTemplates struct {
		mu    sync.RWMutex
		cache tmplCache
		conf  *Config
	}
)

// ParseEmailTemplates parses all `*.txt` and `*.gohtml` templates under dir, each one layered on top
// of the `_base` template of the same extension.
func ParseEmailTemplates(fsys fs.FS, dir string, conf *Config) (*EmailTemplates, error) {
	fps, err := fs.Glob(fsys, path.Join(dir, "*"))
	if err != nil {
		return nil, errors.Wrap(err, "listing email templates")
	}

	cache := make(tmplCache)
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			cache[name] = entry
		}
		base := path.Join(dir, "_base"+ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
	return &EmailTemplates{cache: cache, conf: conf}, nil
}

func (et *EmailTemplates) get(name, ext string) (interface{}, bool) {
	et.mu.RLock()
	defer et.mu.RUnlock()
	entry, ok := et.cache[name]
	if !ok {
		return nil, ok
	}
	tmpl, ok := entry[ext]
	return tmpl, ok
}

// Render fills in the text and html contents of msg.
func (et *EmailTemplates) Render(msg *EmailMessage) error {
	if msg.BodyStr != "" {
		msg.TextContent = msg.BodyStr
	}
	if msg.TemplateName == "" || et == nil {
		return nil
	}
	data := ContextData{
		AppName:         et.conf.AppName,
		FrontendBaseURL: et.conf.FrontendBaseURL,
		Data:            msg.TemplateData,
	}

	if msg.BodyStr == "" {
		if tmpl, ok := et.get(msg.TemplateName, ".txt"); ok {
			var buff bytes.Buffer
			if err := tmpl.(*texttmpl.Template).Execute(&buff, data); err != nil {
				return errors.Wrap(err, "rendering text content")
			}
			msg.TextContent = buff.String()
		}
	}
	if tmpl, ok := et.get(msg.TemplateName, ".gohtml"); ok {
		var buff bytes.Buffer
		if err := tmpl.(*htmltmpl.Template).Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering html content")
		}
		msg.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
