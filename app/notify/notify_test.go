package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-pkgz/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/notify/mocks"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
)

func testData() JobData {
	return JobData{ID: "keells_vegetables_1", Store: "keells", Category: "vegetables", Status: "failed",
		Error: "exit status 3", Items: 12, Duration: 5 * time.Second, Host: "crawler-1", TS: time.Now()}
}

func TestService_EmptyDestinations(t *testing.T) {
	svc := NewService(Params{}, SendersParams{})
	require.Nil(t, svc)
	svc = NewService(Params{}, SendersParams{SlackToken: "token"})
	require.Nil(t, svc, "slack without channels")
}

func TestMakeErrorHTMLDefault(t *testing.T) {
	svc := NewService(Params{}, SendersParams{ToEmails: []string{"test@example.com"}})
	require.NotNil(t, svc)
	res, err := svc.MakeErrorHTML(testData())
	require.NoError(t, err)
	assert.Contains(t, res, "<li>Crawler: <span class=\"bold\">keells/vegetables</span></li>")
	assert.Contains(t, res, "Crawl job failed on <span class=\"bold\">crawler-1</span>")
	assert.Contains(t, res, "exit status 3")
}

func TestMakeErrorHTMLCustom(t *testing.T) {
	svc := NewService(Params{ErrorTemplate: "testdata/err.tmpl"}, SendersParams{ToEmails: []string{"test@example.com"}})
	require.NotNil(t, svc)
	res, err := svc.MakeErrorHTML(testData())
	require.NoError(t, err)
	assert.Contains(t, res, "Job failed: keells/vegetables")
	assert.Contains(t, res, "Error: exit status 3")

	for _, file := range []string{"testdata/err-bad.tmpl", "testdata/missing.tmpl"} {
		svc = NewService(Params{ErrorTemplate: file}, SendersParams{ToEmails: []string{"test@example.com"}})
		require.NotNil(t, svc)
		res, err = svc.MakeErrorHTML(testData())
		require.NoError(t, err)
		assert.Contains(t, res, "Crawl job failed", "default template used for %s", file)
	}
}

func TestMakeCompletionHTML(t *testing.T) {
	svc := NewService(Params{}, SendersParams{ToEmails: []string{"test@example.com"}})
	require.NotNil(t, svc)
	res, err := svc.MakeCompletionHTML(testData())
	require.NoError(t, err)
	assert.Contains(t, res, "<li>Items: <span class=\"bold\">12</span></li>")
	assert.Contains(t, res, "Crawl job completed")

	svc = NewService(Params{CompletionTemplate: "testdata/completed.tmpl"}, SendersParams{ToEmails: []string{"test@example.com"}})
	res, err = svc.MakeCompletionHTML(testData())
	require.NoError(t, err)
	assert.Contains(t, res, "Job done: keells/vegetables, items 12")
}

func TestMakeText(t *testing.T) {
	assert.Equal(t, "keells/vegetables failed on crawler-1 in 5s, 12 items\nexit status 3", MakeText(testData()))
	d := testData()
	d.Error, d.Status = "", "completed"
	assert.Equal(t, "keells/vegetables completed on crawler-1 in 5s, 12 items", MakeText(d))
}

func TestService_IsOn(t *testing.T) {
	svc := NewService(Params{OnError: true}, SendersParams{ToEmails: []string{"test@example.com"}})
	require.NotNil(t, svc)
	assert.True(t, svc.IsOnError())
	assert.False(t, svc.IsOnCompletion())
}

func TestService_Send(t *testing.T) {
	tests := []struct {
		name        string
		subj        string
		text        string
		destination string
		sendErr     error
	}{
		{
			name:        "successful send",
			subj:        "Test Subject",
			text:        "Test Text",
			destination: "mailto:to@example.com,to2@example.com?from=from%40example.com&subject=Test+Subject",
		},
		{
			name:        "send error",
			subj:        "Problem Subject",
			text:        "Problem Text",
			destination: "mailto:to@example.com,to2@example.com?from=from%40example.com&subject=Problem+Subject",
			sendErr:     errors.New("mock error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailtoNotifier := &mocks.NotifierMock{
				SendFunc: func(_ context.Context, dest string, text string) error {
					assert.Equal(t, tt.text, text)
					assert.Equal(t, tt.destination, dest)
					return tt.sendErr
				},
				SchemaFunc: func() string { return "mailto" },
				StringFunc: func() string { return "mailto" },
			}

			s := Service{
				notifiers: []notify.Notifier{mailtoNotifier},
				fromEmail: "from@example.com",
				toEmail:   []string{"to@example.com", "to2@example.com"},
			}

			err := s.Send(context.Background(), tt.subj, tt.text)
			assert.Len(t, mailtoNotifier.SendCalls(), 1)
			if tt.sendErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, "mock error")
		})
	}
}

func TestService_OnJobComplete(t *testing.T) {
	var mu sync.Mutex
	sent := map[string]string{}
	n := &mocks.NotifierMock{
		SendFunc: func(_ context.Context, dest string, text string) error {
			mu.Lock()
			defer mu.Unlock()
			sent[dest] = text
			return nil
		},
		SchemaFunc: func() string { return "slack" },
		StringFunc: func() string { return "slack" },
	}
	svc := Service{Params: Params{OnError: true, Hostname: "h1", Timeout: time.Second},
		notifiers: []notify.Notifier{n}, destinations: []string{"slack:crawls"}}

	now := time.Now()
	view := registry.View{ID: "j1", Store: "keells", Category: "fruits", Status: enums.JobStatusCompleted,
		StartedAt: now.Add(-time.Minute), FinishedAt: now, ItemsFound: 3}
	svc.OnJobStart(view)
	svc.OnJobComplete(view)
	svc.Wait()
	assert.Empty(t, n.SendCalls(), "completion notifications disabled")

	view.Status, view.Error = enums.JobStatusFailed, "exit status 1"
	svc.OnJobComplete(view)
	svc.Wait()
	require.Len(t, n.SendCalls(), 1)
	assert.Equal(t, "keells/fruits failed on h1 in 1m0s, 3 items\nexit status 1",
		sent["slack:crawls?title=crawl+keells%2Ffruits+failed"])

	view.Status = enums.JobStatusStopped
	svc.OnJobComplete(view)
	svc.Wait()
	assert.Len(t, n.SendCalls(), 1, "stopped jobs not reported")
}

func TestService_Webhook(t *testing.T) {
	bodies := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		bodies <- string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	svc := NewService(Params{OnCompletion: true, Hostname: "h2"}, SendersParams{Webhooks: []string{ts.URL + "/hook"},
		WebhookTimeout: time.Second})
	require.NotNil(t, svc)

	now := time.Now()
	svc.OnJobComplete(registry.View{ID: "j2", Store: "cargills", Category: "dairy", Status: enums.JobStatusCompleted,
		StartedAt: now.Add(-2 * time.Second), FinishedAt: now, ItemsFound: 7})
	svc.Wait()

	select {
	case b := <-bodies:
		assert.Contains(t, b, "cargills/dairy completed on h2")
		assert.Contains(t, b, "7 items")
	case <-time.After(time.Second):
		t.Fatal("webhook not called")
	}
}

func TestService_SendAllCollectsErrors(t *testing.T) {
	n := &mocks.NotifierMock{
		SendFunc:   func(context.Context, string, string) error { return errors.New("boom") },
		SchemaFunc: func() string { return "http" },
		StringFunc: func() string { return "webhook" },
	}
	svc := Service{notifiers: []notify.Notifier{n}, destinations: []string{"http://a", "http://b"}}
	err := svc.SendAll(context.Background(), "subj", "<p>x</p>", "x")
	var se *SendError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Messages, 2)
}
