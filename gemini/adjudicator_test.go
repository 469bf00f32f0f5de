package gemini_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard"
	"github.com/mergeguard/mergeguard/gemini"
)

func behavioralConflict() mergeguard.Conflict {
	return mergeguard.Conflict{
		Kind:        mergeguard.ConflictBehavioral,
		Severity:    mergeguard.SeverityWarning,
		Source:      12,
		Target:      15,
		File:        "auth/session.py",
		Symbol:      "validate_token",
		Description: "both proposals modify validate_token at different lines",
	}
}

func TestAdjudicator_ConfidentVerdict(t *testing.T) {
	t.Parallel()

	client := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			assert.Equal(t, "gemini-2.0-flash", model)
			require.Len(t, contents, 1)
			prompt := contents[0].Parts[0].Text
			assert.Contains(t, prompt, "validate_token")
			assert.Contains(t, prompt, "Proposal #12 diff")
			assert.Contains(t, prompt, "Proposal #15 diff")
			require.NotNil(t, config)
			assert.Equal(t, "application/json", config.ResponseMIMEType)
			return &gemini.GenerateContentResponse{
				Text: `{"severity":"critical","confident":true,"reasoning":"both alter the expiry check"}`,
			}, nil
		},
	}

	a := gemini.NewAdjudicator(client, "gemini-2.0-flash")
	severity, ok, err := a.Adjudicate(context.Background(), behavioralConflict(), "+ source", "+ target")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, mergeguard.SeverityCritical, severity)
}

func TestAdjudicator_NotConfidentLeavesDefault(t *testing.T) {
	t.Parallel()

	client := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return &gemini.GenerateContentResponse{
				Text: `{"severity":"info","confident":false,"reasoning":"not enough context"}`,
			}, nil
		},
	}

	a := gemini.NewAdjudicator(client, "gemini-2.0-flash")
	_, ok, err := a.Adjudicate(context.Background(), behavioralConflict(), "+ a", "+ b")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdjudicator_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error)
	}{
		{
			"api error",
			func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
				return nil, errors.New("rate limited")
			},
		},
		{
			"nil response",
			func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
				return nil, nil
			},
		},
		{
			"malformed json",
			func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
				return &gemini.GenerateContentResponse{Text: "not json"}, nil
			},
		},
		{
			"unknown severity",
			func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
				return &gemini.GenerateContentResponse{Text: `{"severity":"fatal","confident":true}`}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := gemini.NewAdjudicator(&gemini.MockGenerativeClient{GenerateContentFn: tt.fn}, "gemini-2.0-flash")
			_, ok, err := a.Adjudicate(context.Background(), behavioralConflict(), "", "")
			require.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBuildAdjudicationConfig(t *testing.T) {
	t.Parallel()

	config := gemini.BuildAdjudicationConfig()
	require.NotNil(t, config.ResponseSchema)
	assert.Equal(t, "object", config.ResponseSchema.Type)
	assert.Equal(t, []string{"critical", "warning", "info"}, config.ResponseSchema.Properties["severity"].Enum)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.2, float64(*config.Temperature), 1e-6)
	assert.Equal(t, "LOW", config.ThinkingLevel)
}
