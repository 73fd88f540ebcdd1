package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.messages[id] = contents
}

func TestRedactForm(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "email=a%40b.c&password=hunter2", expected: "email=%3Credacted%3E&password=%3Credacted%3E"},
		{input: "code=ABC123", expected: "code=%3Credacted%3E"},
		{input: "station=Abraham+Lincoln", expected: "station=Abraham+Lincoln"},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, redactForm(row.input))
	}
}

func TestInstrumentRestyRedactsCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "CompanionApp", Value: "session-secret"})
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	rec := &Recorder{}
	out := &memoryOutput{messages: map[string]string{}}

	client := resty.New()
	client.SetBaseURL(server.URL)
	InstrumentResty(client, rec, out)

	res, err := client.R().
		SetFormData(map[string]string{
			"email":    "cmdr@example.com",
			"password": "hunter2",
		}).
		Post("/user/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())

	require.Len(t, out.messages, 1)
	for _, msg := range out.messages {
		require.NotContains(t, msg, "hunter2")
		require.NotContains(t, msg, "cmdr@example.com")
		require.NotContains(t, msg, "session-secret")
		require.True(t, strings.HasPrefix(msg, "---- REQUEST ----"))
	}
	require.NotContains(t, rec.Dump(), "hunter2")
	require.Len(t, rec.Find("debug", report_resty_response), 1)
}
