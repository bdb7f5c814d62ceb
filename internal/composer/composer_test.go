package composer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/safechat/internal/llm"
)

type fakeLLM struct {
	reply       string
	chunks      []string
	err         error
	prompt      llm.Prompt
	completions int
	streams     int
}

func (f *fakeLLM) Complete(_ context.Context, p llm.Prompt) (string, error) {
	f.completions++
	f.prompt = p
	return f.reply, f.err
}

func (f *fakeLLM) Stream(_ context.Context, p llm.Prompt) (llm.TokenStream, error) {
	f.streams++
	f.prompt = p
	if f.err != nil {
		return nil, f.err
	}
	return llm.NewStaticStream(f.chunks...), nil
}

func drain(t *testing.T, s llm.TokenStream) string {
	t.Helper()
	defer s.Close()
	var sb strings.Builder
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String()
		}
		require.NoError(t, err)
		sb.WriteString(chunk)
	}
}

func TestNew(t *testing.T) {
	c, err := New("extraction", &fakeLLM{}, nil)
	require.NoError(t, err)
	require.IsType(t, &Extraction{}, c)

	c, err = New("", &fakeLLM{}, nil)
	require.NoError(t, err)
	require.IsType(t, &Extraction{}, c)

	c, err = New(" Focused ", &fakeLLM{}, nil)
	require.NoError(t, err)
	require.IsType(t, &Focused{}, c)

	_, err = New("creative", &fakeLLM{}, nil)
	require.Error(t, err)
}

func TestExtraction_Compose_AppendsSuffixWhenTruncated(t *testing.T) {
	fake := &fakeLLM{reply: "Call 100 for police"}
	e := NewExtraction(fake, zaptest.NewLogger(t))

	out, err := e.Compose(context.Background(), "police number?", "Call 100 for police. Call 1091 for the women helpline.")
	require.NoError(t, err)
	require.Equal(t, "Call 100 for police... (Some information may be incomplete. Please ask for more specific details.)", out)
	require.Equal(t, "Query: police number?\nContent: Call 100 for police. Call 1091 for the women helpline.", fake.prompt.User)
	require.Equal(t, 1000, fake.prompt.MaxTokens)
	require.Zero(t, fake.prompt.Temperature)
}

func TestExtraction_Compose_TerminalPunctuation(t *testing.T) {
	for _, reply := range []string{"Call 100.", "Run!", "Need help?", "Call 100\n"} {
		e := NewExtraction(&fakeLLM{reply: reply}, zaptest.NewLogger(t))
		out, err := e.Compose(context.Background(), "q", "c")
		require.NoError(t, err)
		require.Equal(t, reply, out)
	}
}

func TestExtraction_Compose_EmptyBecomesSentinel(t *testing.T) {
	e := NewExtraction(&fakeLLM{reply: ""}, zaptest.NewLogger(t))

	out, err := e.Compose(context.Background(), "q", "c")
	require.NoError(t, err)
	require.Equal(t, NoInformationSentinel, out)
}

func TestExtraction_Compose_Error(t *testing.T) {
	cause := errors.New("upstream")
	e := NewExtraction(&fakeLLM{err: cause}, zaptest.NewLogger(t))

	_, err := e.Compose(context.Background(), "q", "c")
	require.ErrorIs(t, err, cause)

	_, err = e.Stream(context.Background(), "q", "c")
	require.ErrorIs(t, err, cause)
}

func TestExtraction_Stream_IsUnprocessed(t *testing.T) {
	fake := &fakeLLM{chunks: []string{"Call 100 ", "for police"}}
	e := NewExtraction(fake, zaptest.NewLogger(t))

	s, err := e.Stream(context.Background(), "q", "c")
	require.NoError(t, err)
	require.Equal(t, "Call 100 for police", drain(t, s))
	require.Equal(t, 1, fake.streams)
	require.Zero(t, fake.completions)
}

func TestExtraction_NoMatch(t *testing.T) {
	e := NewExtraction(&fakeLLM{}, nil)
	require.NotContains(t, e.NoMatch(), "Emergency Contacts")
	require.Contains(t, e.NoMatch(), "I apologize")
}

func TestFocused_Compose_AppendsEmergencyContacts(t *testing.T) {
	fake := &fakeLLM{reply: "- Go to a crowded place\n- Call 112\n"}
	f := NewFocused(fake, zaptest.NewLogger(t))

	out, err := f.Compose(context.Background(), "someone is following me", "content")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "- Go to a crowded place\n- Call 112"))
	require.True(t, strings.HasSuffix(out, EmergencyContacts))
	require.Equal(t, float32(0.3), fake.prompt.Temperature)
}

func TestFocused_Stream_EndsWithEmergencyContacts(t *testing.T) {
	f := NewFocused(&fakeLLM{chunks: []string{"- Call ", "112"}}, zaptest.NewLogger(t))

	s, err := f.Stream(context.Background(), "q", "c")
	require.NoError(t, err)
	require.Equal(t, "- Call 112"+EmergencyContacts, drain(t, s))
}

func TestFocused_NoMatch_ContainsEmergencyContacts(t *testing.T) {
	f := NewFocused(&fakeLLM{}, nil)
	require.Contains(t, f.NoMatch(), EmergencyContacts)
	require.Contains(t, f.NoMatch(), "Women Helpline: 1091")
}

func TestLooksTruncated(t *testing.T) {
	require.True(t, looksTruncated("Call 100 for police"))
	require.False(t, looksTruncated("Call 100."))
	require.False(t, looksTruncated(""))
}
