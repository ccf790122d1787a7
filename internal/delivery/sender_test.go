package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"voxnote/pkg/apperr"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *ResendSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := resend.NewClient("re_test")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return NewResendSender(client, "notes@example.com")
}

func TestCompose(t *testing.T) {
	req := Compose("notes@example.com", Message{To: "a@example.com", Markdown: "# Hi <b>"})
	assert.Equal(t, "Markdown Document: Untitled", req.Subject)
	assert.Equal(t, []string{"a@example.com"}, req.To)
	assert.Equal(t, "<p>Here's your markdown document:</p><pre># Hi &lt;b&gt;</pre>", req.Html)
	assert.Equal(t, "# Hi <b>", req.Text)

	req = Compose("notes@example.com", Message{To: "a@example.com", Title: "Standup"})
	assert.Equal(t, "Markdown Document: Standup", req.Subject)
}

func TestSend(t *testing.T) {
	var got resend.SendEmailRequest
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"email-123"}`))
	})

	id, err := sender.Send(context.Background(), Message{To: "a@example.com", Title: "Standup", Markdown: "- shipped"})
	require.NoError(t, err)
	assert.Equal(t, "email-123", id)
	assert.Equal(t, "notes@example.com", got.From)
	assert.Equal(t, "Markdown Document: Standup", got.Subject)
}

func TestSendRemoteFailure(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from"}`))
	})

	_, err := sender.Send(context.Background(), Message{To: "a@example.com", Markdown: "x"})
	assert.Equal(t, apperr.RemoteDeliveryFailed, apperr.KindOf(err))
}

func TestSendRejectsBadRecipient(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := sender.Send(context.Background(), Message{To: "not-an-email", Markdown: "x"})
	assert.ErrorIs(t, err, apperr.Validation)
}
