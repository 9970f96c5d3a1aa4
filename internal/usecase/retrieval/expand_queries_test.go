package retrieval

import (
	"context"
	"errors"
	"testing"

	"nutriagent/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestExpandQueries_SingleVariantSkipsGeneration(t *testing.T) {
	gen := new(mockGenerator)

	variants := ExpandQueries(context.Background(), gen, "vitamin C sources", 1, testLogger())

	assert.Equal(t, []string{"vitamin C sources"}, variants)
	gen.AssertNotCalled(t, "Generate")
}

func TestExpandQueries_OriginalAlwaysFirst(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{Text: "what foods contain vitamin C\nbest vitamin C food sources\ndaily vitamin C intake", Done: true}, nil)

	variants := ExpandQueries(context.Background(), gen, "vitamin C sources", 4, testLogger())

	assert.Len(t, variants, 4)
	assert.Equal(t, "vitamin C sources", variants[0])
	assert.Equal(t, "what foods contain vitamin C", variants[1])
	gen.AssertExpectations(t)
}

func TestExpandQueries_GenerationFailurePadsWithOriginal(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("provider down"))

	variants := ExpandQueries(context.Background(), gen, "protein per egg", 3, testLogger())

	assert.Equal(t, []string{"protein per egg", "protein per egg", "protein per egg"}, variants)
}

func TestExpandQueries_FewerParaphrasesThanRequestedPads(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{Text: "how much protein in one egg", Done: true}, nil)

	variants := ExpandQueries(context.Background(), gen, "protein per egg", 4, testLogger())

	assert.Len(t, variants, 4)
	assert.Equal(t, "protein per egg", variants[0])
	assert.Equal(t, "how much protein in one egg", variants[1])
	assert.Equal(t, "protein per egg", variants[2])
	assert.Equal(t, "protein per egg", variants[3])
}

func TestExpandQueries_DuplicateParaphrasesDropped(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{Text: "protein per egg\nprotein per egg\negg protein content", Done: true}, nil)

	variants := ExpandQueries(context.Background(), gen, "protein per egg", 3, testLogger())

	assert.Equal(t, []string{"protein per egg", "egg protein content", "protein per egg"}, variants)
}

func TestParseVariantLines_StripsListMarkers(t *testing.T) {
	raw := "1. first question\n2) second question\n- third question\n* fourth question\n\n  fifth question  "

	lines := parseVariantLines(raw)

	assert.Equal(t, []string{
		"first question",
		"second question",
		"third question",
		"fourth question",
		"fifth question",
	}, lines)
}
