package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *TwilioSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewTwilioSender("AC123", "token", "+5511900000000", nil, nil)
	s.baseURL = srv.URL
	s.httpClient = srv.Client()
	s.backoff = func(int) time.Duration { return time.Millisecond }
	return s
}

func TestTwilioSenderSendsForm(t *testing.T) {
	var gotPath, gotTo, gotBody, gotUser string
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotPath = r.URL.Path
		gotTo = r.PostFormValue("To")
		gotBody = r.PostFormValue("Body")
		gotUser, _, _ = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	})

	require.NoError(t, s.SendSMS(context.Background(), "11999990000", "Hi Maria"))
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "+5511999990000", gotTo)
	assert.Equal(t, "Hi Maria", gotBody)
	assert.Equal(t, "AC123", gotUser)
}

func TestTwilioSenderRetriesServerErrors(t *testing.T) {
	var calls int32
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, s.SendSMS(context.Background(), "+5511999990000", "Hi"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTwilioSenderDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	})

	err := s.SendSMS(context.Background(), "+5511999990000", "Hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 21211")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTwilioSenderValidatesInput(t *testing.T) {
	s := NewTwilioSender("", "", "", nil, nil)
	assert.Error(t, s.SendSMS(context.Background(), "+5511999990000", "Hi"))

	s = NewTwilioSender("AC123", "token", "+5511900000000", nil, nil)
	assert.Error(t, s.SendSMS(context.Background(), "", "Hi"))
	assert.Error(t, s.SendSMS(context.Background(), "+5511999990000", "  "))
}
