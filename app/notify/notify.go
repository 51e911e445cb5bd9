// Package notify sends messages about finished crawl jobs to email, slack and webhook destinations
package notify

import (
	"bytes"
	"context"
	htmltemplate "html/template"
	"net/url"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
)

// Params defines when and how to notify
type Params struct {
	OnError            bool
	OnCompletion       bool
	ErrorTemplate      string // html template file for failure emails, optional
	CompletionTemplate string // html template file for completion emails, optional
	Hostname           string
	Timeout            time.Duration
}

// SendersParams defines destinations
type SendersParams struct {
	SMTP      notify.SMTPParams
	FromEmail string
	ToEmails  []string

	SlackToken    string
	SlackChannels []string

	Webhooks       []string
	WebhookTimeout time.Duration
}

// Service sends notifications on job completion and failure. Implements scheduler.JobEventHandler.
type Service struct {
	Params
	notifiers    []notify.Notifier
	destinations []string
	fromEmail    string
	toEmail      []string
	wg           sync.WaitGroup
}

// JobData passed to message templates
type JobData struct {
	ID       string
	Store    string
	Category string
	Status   string
	Error    string
	Items    int
	Output   string
	Duration time.Duration
	Host     string
	TS       time.Time
}

// NewService makes notification service, returns nil if no destinations defined
func NewService(p Params, sp SendersParams) *Service {
	res := &Service{Params: p, fromEmail: sp.FromEmail, toEmail: sp.ToEmails}
	if res.Timeout <= 0 {
		res.Timeout = 30 * time.Second
	}
	if res.Hostname == "" {
		res.Hostname, _ = os.Hostname()
	}

	if len(sp.ToEmails) > 0 {
		res.notifiers = append(res.notifiers, notify.NewEmail(sp.SMTP))
		res.destinations = append(res.destinations, "mailto:")
	}
	if sp.SlackToken != "" && len(sp.SlackChannels) > 0 {
		res.notifiers = append(res.notifiers, notify.NewSlack(sp.SlackToken))
		for _, ch := range sp.SlackChannels {
			res.destinations = append(res.destinations, "slack:"+ch)
		}
	}
	if len(sp.Webhooks) > 0 {
		res.notifiers = append(res.notifiers, notify.NewWebhook(notify.WebhookParams{Timeout: sp.WebhookTimeout}))
		res.destinations = append(res.destinations, sp.Webhooks...)
	}
	if len(res.notifiers) == 0 {
		return nil
	}
	log.Printf("[INFO] notifications enabled, %d destinations, on error %v, on completion %v",
		len(res.destinations), p.OnError, p.OnCompletion)
	return res
}

// IsOnError status enabling on-error notification
func (s *Service) IsOnError() bool { return s.OnError }

// IsOnCompletion status enabling on-completion notification
func (s *Service) IsOnCompletion() bool { return s.OnCompletion }

// OnJobStart does nothing, only finished jobs are reported
func (s *Service) OnJobStart(registry.View) {}

// OnJobComplete sends notification about finished job in background
func (s *Service) OnJobComplete(v registry.View) {
	var subj, html string
	var err error
	data := s.jobData(v)
	switch {
	case v.Status == enums.JobStatusFailed && s.OnError:
		subj = "crawl " + v.Store + "/" + v.Category + " failed"
		html, err = s.MakeErrorHTML(data)
	case v.Status == enums.JobStatusCompleted && s.OnCompletion:
		subj = "crawl " + v.Store + "/" + v.Category + " completed"
		html, err = s.MakeCompletionHTML(data)
	default:
		return
	}
	if err != nil {
		log.Printf("[WARN] can't make notification for %s, %v", v.ID, err)
		return
	}
	text := MakeText(data)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()
		if err := s.SendAll(ctx, subj, html, text); err != nil {
			log.Printf("[WARN] can't send notification for %s, %v", v.ID, err)
		}
	}()
}

// Wait blocks till all background notifications sent
func (s *Service) Wait() { s.wg.Wait() }

// SendAll delivers html message to email recipients and text message to all other destinations
func (s *Service) SendAll(ctx context.Context, subj, html, text string) error {
	var errs []string
	for _, dest := range s.destinations {
		var err error
		switch {
		case strings.HasPrefix(dest, "mailto:"):
			err = s.Send(ctx, subj, html)
		case strings.HasPrefix(dest, "slack:"):
			err = notify.Send(ctx, s.notifiers, dest+"?title="+url.QueryEscape(subj), text)
		default:
			err = notify.Send(ctx, s.notifiers, dest, text)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return &SendError{Messages: errs}
	}
	return nil
}

// Send email with given subject and html body to all recipients
func (s *Service) Send(ctx context.Context, subj, text string) error {
	q := url.Values{}
	q.Set("from", s.fromEmail)
	q.Set("subject", subj)
	dest := "mailto:" + strings.Join(s.toEmail, ",") + "?" + q.Encode()
	return notify.Send(ctx, s.notifiers, dest, text)
}

// SendError collects failures of all destinations
type SendError struct {
	Messages []string
}

func (e *SendError) Error() string { return strings.Join(e.Messages, "; ") }

// MakeErrorHTML creates html of failure message, custom template file used if set and valid
func (s *Service) MakeErrorHTML(d JobData) (string, error) {
	return s.render(s.ErrorTemplate, defaultErrorTmpl, d)
}

// MakeCompletionHTML creates html of completion message, custom template file used if set and valid
func (s *Service) MakeCompletionHTML(d JobData) (string, error) {
	return s.render(s.CompletionTemplate, defaultCompletionTmpl, d)
}

// MakeText creates short plain text message for chats and webhooks
func MakeText(d JobData) string {
	buf := bytes.Buffer{}
	if err := textTmpl.Execute(&buf, d); err != nil {
		return d.Store + "/" + d.Category + " " + d.Status
	}
	return strings.TrimSpace(buf.String())
}

func (s *Service) render(file, fallback string, d JobData) (string, error) {
	tmpl := fallback
	if file != "" {
		if b, err := os.ReadFile(file); err == nil { //nolint:gosec // template file from cli options
			tmpl = string(b)
		} else {
			log.Printf("[WARN] can't read template %s, default used, %v", file, err)
		}
	}
	t, err := htmltemplate.New("msg").Parse(tmpl)
	if err != nil && tmpl != fallback {
		log.Printf("[WARN] can't parse template %s, default used, %v", file, err)
		t, err = htmltemplate.New("msg").Parse(fallback)
	}
	if err != nil {
		return "", err
	}
	buf := bytes.Buffer{}
	if err := t.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) jobData(v registry.View) JobData {
	ts := v.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return JobData{ID: v.ID, Store: v.Store, Category: v.Category, Status: v.Status.String(), Error: v.Error,
		Items: v.ItemsFound, Output: v.OutputFile, Duration: v.Duration().Round(time.Second), Host: s.Hostname, TS: ts}
}

var textTmpl = template.Must(template.New("text").Parse(
	`{{.Store}}/{{.Category}} {{.Status}} on {{.Host}} in {{.Duration}}, {{.Items}} items{{if .Error}}
{{.Error}}{{end}}`))

const htmlHead = `<!DOCTYPE html>
<html>
	<head>
		<meta name="viewport" content="width=device-width" />
		<meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
		<style type="text/css">
			body {
				font-family: "Arial";
				font-size: 1.0em;
			}
			ul {
				margin-top: -0.5em;
				margin-left: -0.5em;
			}
			pre {
				padding: 0.6em;
				font-size: 0.7em;
				background-color: #E8E2A0;
				font-family: "Menlo";
				overflow-x: auto;
				white-space: pre-wrap;
				word-wrap: break-word;
			}
			.bold {
				color: #882828;
				font-weight: 900;
			}
		</style>
	</head>
`

const defaultErrorTmpl = htmlHead + `
	<body>
		<p>Crawl job failed on <span class="bold">{{.Host}}</span> at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}</p>
		<ul>
			<li>Job: <span class="bold">{{.ID}}</span></li>
			<li>Crawler: <span class="bold">{{.Store}}/{{.Category}}</span></li>
			<li>Duration: {{.Duration}}</li>
		</ul>
		<pre>
{{.Error}}
		</pre>
	</body>
</html>
`

const defaultCompletionTmpl = htmlHead + `
	<body>
		<p>Crawl job completed on <span class="bold">{{.Host}}</span> at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}</p>
		<ul>
			<li>Job: <span class="bold">{{.ID}}</span></li>
			<li>Crawler: <span class="bold">{{.Store}}/{{.Category}}</span></li>
			<li>Items: <span class="bold">{{.Items}}</span></li>
			<li>Duration: {{.Duration}}</li>
		</ul>
	</body>
</html>
`
