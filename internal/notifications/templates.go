package notifications

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"text/template"
)

// TemplateData is the value mail templates are executed against.
//
//	{{.Receiver}}        receiver address
//	{{range .Files}}     attachment file names
//	{{.Message}}         failure reason (error mails only)
//	{{.Options.key}}     format options submitted with the job, as text
//	{{.Values.key}}      the same options with their submitted types
type TemplateData struct {
	Receiver string
	Files    []string
	Message  string
	Options  map[string]string
	Values   map[string]any
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func parseMessageTemplate(name, subject, body string) (messageTemplate, error) {
	s, err := template.New(name + "_subject").Option("missingkey=zero").Parse(subject)
	if err != nil {
		return messageTemplate{}, fmt.Errorf("parse %s subject: %w", name, err)
	}
	b, err := template.New(name + "_body").Option("missingkey=zero").Parse(body)
	if err != nil {
		return messageTemplate{}, fmt.Errorf("parse %s body: %w", name, err)
	}
	return messageTemplate{subject: s, body: b}, nil
}

func (t messageTemplate) render(data TemplateData) (string, string, error) {
	var subject, body strings.Builder
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return strings.Join(strings.Fields(subject.String()), " "), body.String(), nil
}

func newTemplateData(receiver string, paths []string, message string, opts map[string]any) TemplateData {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		files = append(files, filepath.Base(p))
	}
	options := make(map[string]string, len(opts))
	for k, v := range opts {
		if v != nil {
			options[k] = fmt.Sprint(v)
		}
	}
	values := maps.Clone(opts)
	if values == nil {
		values = map[string]any{}
	}
	return TemplateData{Receiver: receiver, Files: files, Message: message, Options: options, Values: values}
}
