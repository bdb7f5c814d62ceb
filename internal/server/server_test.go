package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/safechat/internal/apperror"
	"github.com/xaenox/safechat/internal/classifier"
	"github.com/xaenox/safechat/internal/llm"
	"github.com/xaenox/safechat/internal/models"
	"github.com/xaenox/safechat/internal/router"
	"github.com/xaenox/safechat/pkg/config"
)

type fakeResponder struct {
	reply router.Reply
	err   error
	calls int
	got   models.ChatMessage
	ctx   context.Context
}

func (f *fakeResponder) Handle(ctx context.Context, msg models.ChatMessage) (router.Reply, error) {
	f.calls++
	f.got = msg
	f.ctx = ctx
	return f.reply, f.err
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error {
	return f.err
}

// trackedStream wraps a token stream and records Close calls.
type trackedStream struct {
	llm.TokenStream
	recvs  int
	closed bool
}

func (s *trackedStream) Recv() (string, error) {
	s.recvs++
	return s.TokenStream.Recv()
}

func (s *trackedStream) Close() error {
	s.closed = true
	return s.TokenStream.Close()
}

func newTestServer(t *testing.T, env string, responder Responder, store Pinger) *Server {
	t.Helper()
	cfg := &config.Config{
		App:    config.AppConfig{Environment: env},
		Server: config.ServerConfig{Port: "0", CorsOrigins: "*"},
	}
	return New(cfg, responder, store, zaptest.NewLogger(t))
}

func postChat(t *testing.T, s *Server, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.GetApp().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestChat_Buffered(t *testing.T) {
	responder := &fakeResponder{reply: router.Reply{Classification: classifier.Relevant, Text: "Call 1091."}}
	s := newTestServer(t, "development", responder, fakePinger{})

	resp := postChat(t, s, `{"message":"women helpline?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))
	require.Equal(t, "Call 1091.", decode[chatResponse](t, resp).Response)
	require.Equal(t, "women helpline?", responder.got.Text)
	require.False(t, responder.got.Stream)
	require.ErrorIs(t, responder.ctx.Err(), context.Canceled)
}

func TestChat_InvalidBody(t *testing.T) {
	responder := &fakeResponder{}
	s := newTestServer(t, "development", responder, fakePinger{})

	for _, body := range []string{`{not json`, `{}`, `{"message":"   "}`, `{"message":42}`} {
		resp := postChat(t, s, body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		require.Equal(t, msgInvalidBody, decode[errorResponse](t, resp).Error)
	}
	require.Zero(t, responder.calls)
}

func TestChat_Streaming(t *testing.T) {
	stream := &trackedStream{TokenStream: llm.NewStaticStream("Call ", "100 ", "now.")}
	responder := &fakeResponder{reply: router.Reply{Classification: classifier.Relevant, Stream: stream}}
	s := newTestServer(t, "development", responder, fakePinger{})

	resp := postChat(t, s, `{"message":"police?","stream":true}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Call 100 now.", string(body))
	require.True(t, responder.got.Stream)
	require.True(t, stream.closed)
	require.ErrorIs(t, responder.ctx.Err(), context.Canceled)
}

func TestChat_ConfigMissing(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"completion", apperror.ConfigMissing(apperror.SubsystemCompletion, "OPENAI_API_KEY is not set"), msgOpenAIConfig},
		{"embedding", apperror.ConfigMissing(apperror.SubsystemEmbedding, "OPENAI_API_KEY is not set"), msgOpenAIConfig},
		{"database", apperror.ConfigMissing(apperror.SubsystemDatabase, "POSTGRES_URL is not set"), msgDatabaseConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := errors.Join(errors.New("router: search"), tc.err)

			s := newTestServer(t, "development", &fakeResponder{err: wrapped}, fakePinger{})
			resp := postChat(t, s, `{"message":"q"}`)
			require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			body := decode[errorResponse](t, resp)
			require.Equal(t, tc.want, body.Error)
			require.NotEmpty(t, body.Details)

			s = newTestServer(t, config.EnvProduction, &fakeResponder{err: wrapped}, fakePinger{})
			resp = postChat(t, s, `{"message":"q"}`)
			require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			body = decode[errorResponse](t, resp)
			require.Equal(t, tc.want, body.Error)
			require.Empty(t, body.Details)
		})
	}
}

func TestChat_UpstreamFailureIsInternal(t *testing.T) {
	err := apperror.Upstream(apperror.SubsystemCompletion, errors.New("502 from upstream"))
	s := newTestServer(t, "development", &fakeResponder{err: err}, fakePinger{})

	resp := postChat(t, s, `{"message":"q"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, errorResponse{Error: msgInternalError}, decode[errorResponse](t, resp))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "development", &fakeResponder{}, fakePinger{})
	resp, err := s.GetApp().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode[healthResponse](t, resp).Status)

	down := apperror.ConfigMissing(apperror.SubsystemDatabase, "POSTGRES_URL is not set")
	s = newTestServer(t, "development", &fakeResponder{}, fakePinger{err: down})
	resp, err = s.GetApp().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[healthResponse](t, resp)
	require.Equal(t, msgStoreUnavailable, body.Status)
	require.Contains(t, body.Error, "POSTGRES_URL")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestRelay_StopsWhenClientGone(t *testing.T) {
	stream := &trackedStream{TokenStream: llm.NewStaticStream("one", "two", "three")}
	ctx, cancel := context.WithCancel(context.Background())

	relay(stream, cancel, zaptest.NewLogger(t))(bufio.NewWriter(failingWriter{}))

	require.Equal(t, 1, stream.recvs)
	require.True(t, stream.closed)
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

type erroringStream struct {
	sent   bool
	closed bool
}

func (s *erroringStream) Recv() (string, error) {
	if !s.sent {
		s.sent = true
		return "partial", nil
	}
	return "", apperror.Upstream(apperror.SubsystemCompletion, errors.New("connection reset"))
}

func (s *erroringStream) Close() error {
	s.closed = true
	return nil
}

func TestRelay_MidStreamErrorEndsBody(t *testing.T) {
	stream := &erroringStream{}
	_, cancel := context.WithCancel(context.Background())

	var sb strings.Builder
	w := bufio.NewWriter(&sb)
	relay(stream, cancel, zaptest.NewLogger(t))(w)

	require.Equal(t, "partial", sb.String())
	require.True(t, stream.closed)
}
