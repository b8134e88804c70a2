package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcmtongue/server/internal/app/service/analyzer"
	"github.com/tcmtongue/server/pkg/response"
)

func TestApiAnalyze_Success(t *testing.T) {
	h := newHarness(t)
	h.strategy.content = `{"patternDifferentiation":{"primaryPattern":{"name":"Damp-Heat","confidence":0.7}},"extra":"kept"}`

	w := h.do(t, http.MethodPost, "/api/analyze", "", AnalyzeRequest{Image: "data:image/jpeg;base64,AAAA"})
	require.Equal(t, http.StatusOK, w.Code)

	doc := decode[map[string]any](t, w)
	require.Equal(t, "kept", doc["extra"])
	meta := doc["analysisMetadata"].(map[string]any)
	require.Equal(t, "2.0", meta["version"])
	require.Equal(t, "stub-model", meta["model"])
	require.NotEmpty(t, meta["analysisTimestamp"])
}

func TestApiAnalyze_Errors(t *testing.T) {
	cases := []struct {
		name    string
		body    any
		content string
		err     error
		status  int
		want    response.Error
	}{
		{"missing image", map[string]string{}, "", nil, http.StatusBadRequest, response.Err("No image provided")},
		{"blank image", AnalyzeRequest{Image: "  "}, "", nil, http.StatusBadRequest, response.Err("No image provided")},
		{"malformed body", "{", "", nil, http.StatusBadRequest, response.Err("No image provided")},
		{"empty content", AnalyzeRequest{Image: "AAAA"}, "", nil, http.StatusInternalServerError, response.Err("Analysis failed")},
		{"not json", AnalyzeRequest{Image: "AAAA"}, "the tongue looks pale", nil, http.StatusInternalServerError,
			response.Err("Invalid analysis format", "Failed to parse response")},
		{"json array", AnalyzeRequest{Image: "AAAA"}, `[1,2]`, nil, http.StatusInternalServerError,
			response.Err("Invalid analysis format", "Failed to parse response")},
		{"not configured", AnalyzeRequest{Image: "AAAA"}, "", analyzer.ErrNotConfigured, http.StatusInternalServerError,
			response.Err("Analysis failed", "analysis provider not configured")},
		{"provider failure", AnalyzeRequest{Image: "AAAA"}, "", errors.New("rate limited"), http.StatusInternalServerError,
			response.Err("Analysis failed", "rate limited")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.strategy.content, h.strategy.err = tc.content, tc.err

			w := h.do(t, http.MethodPost, "/api/analyze", "", tc.body)
			require.Equal(t, tc.status, w.Code)
			require.Equal(t, tc.want, decode[response.Error](t, w))
		})
	}
}
