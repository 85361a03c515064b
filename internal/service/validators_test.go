package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

func slidesContent(body string) models.GeneratedContent {
	return models.GeneratedContent{ID: "c-1", ContentType: models.ContentTypeSlides, Title: "Cells", Content: body}
}

func TestValidatorsAreIdempotent(t *testing.T) {
	content := slidesContent("## learning objectives\nteh cell is is the unit of life. there are many cells.\n## summary\nIt's alive.")
	cfg := models.ValidationConfig{ReadabilityThreshold: defaultReadabilityThreshold}
	for _, v := range BuiltinValidators() {
		first := v.Validate(content, cfg)
		second := v.Validate(content, cfg)
		assert.Equal(t, first.Issues, second.Issues, v.Name())
		assert.Equal(t, first.Score, second.Score, v.Name())
	}
}

func TestStructureValidatorMissingTitle(t *testing.T) {
	content := slidesContent("## Learning Objectives\nUnderstand cells.\n## Content\nCells are units of life.\n## Summary\nCells matter.")

	result := NewStructureValidator().Validate(content, models.ValidationConfig{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Missing required section: title", result.Issues[0].Message)
	assert.Equal(t, models.SeverityError, result.Issues[0].Severity)
	assert.Equal(t, 0.75, result.Score)
	assert.False(t, result.Passed)
}

func TestStructureValidatorFlagsLongContentWithoutHeadings(t *testing.T) {
	body := "title learning objectives content summary " + strings.Repeat("plain words here ", 40)
	result := NewStructureValidator().Validate(slidesContent(body), models.ValidationConfig{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.SeverityWarning, result.Issues[0].Severity)
	assert.Equal(t, 1.0, result.Score)
	assert.True(t, result.Passed)
}

func TestStructureValidatorAutoFixAppendsSection(t *testing.T) {
	v := NewStructureValidator()
	content := slidesContent("Intro text")
	fixed, ok := v.AutoFix(content, models.ValidationIssue{IssueType: models.IssueTypeStructure, Message: "Missing required section: learning objectives"})
	require.True(t, ok)
	assert.Equal(t, "Intro text\n\n## Learning Objectives\n", fixed)

	_, ok = v.AutoFix(content, models.ValidationIssue{IssueType: models.IssueTypeGrammar, Message: "x"})
	assert.False(t, ok)
}

func TestReadabilityValidatorSimpleText(t *testing.T) {
	text := "This is a simple sentence. Here is another one. These sentences are easy to read."
	assert.Greater(t, FleschReadingEase(text), 60.0)

	result := NewReadabilityValidator().Validate(slidesContent(text), models.ValidationConfig{ReadabilityThreshold: 3.0})
	assert.True(t, result.Passed)
	assert.Empty(t, result.Issues)
	assert.Equal(t, 1.0, result.Score)
}

func TestReadabilityValidatorDegenerateInput(t *testing.T) {
	result := NewReadabilityValidator().Validate(slidesContent("   "), models.ValidationConfig{})
	assert.Equal(t, 0.0, result.Score)
	assert.Empty(t, result.Issues)
	assert.True(t, result.Passed)
}

func TestReadabilityValidatorLongSentence(t *testing.T) {
	long := "Cats " + strings.Repeat("run ", 30) + "home."
	cfg := models.ValidationConfig{
		ReadabilityThreshold: 0.1,
		PluginConfigs:        map[string]models.PluginConfig{ValidatorReadability: {"max_sentence_words": 10.0}},
	}
	result := NewReadabilityValidator().Validate(slidesContent(long), cfg)

	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0].Message, "Sentence 1 has 32 words (limit 10)")
	assert.Equal(t, 0.9, result.Score)
}

func TestCompletenessValidatorNoShortfallAboveMinimum(t *testing.T) {
	content := models.GeneratedContent{ContentType: models.ContentTypeQuiz, Content: strings.Repeat("word ", 120)}
	result := NewCompletenessValidator().Validate(content, models.ValidationConfig{})

	assert.Empty(t, result.Issues)
	assert.Equal(t, 1.0, result.Score)
}

func TestCompletenessValidatorShortContent(t *testing.T) {
	content := slidesContent(strings.Repeat("word ", 50))
	result := NewCompletenessValidator().Validate(content, models.ValidationConfig{})

	require.Len(t, result.Issues, 3)
	assert.Equal(t, models.SeverityError, result.Issues[0].Severity)
	assert.Equal(t, "Content has 50 words; at least 200 expected", result.Issues[0].Message)
	assert.Equal(t, models.IssueTypeLearningObjectives, result.Issues[1].IssueType)
	assert.Equal(t, "No examples are provided", result.Issues[2].Message)
	assert.InDelta(t, 0.25*0.8, result.Score, 0.001)
}

func TestCompletenessValidatorPluginMinimum(t *testing.T) {
	content := models.GeneratedContent{ContentType: models.ContentTypeQuiz, Content: "one two three four five"}
	cfg := models.ValidationConfig{PluginConfigs: map[string]models.PluginConfig{ValidatorCompleteness: {"min_words": 5.0}}}
	result := NewCompletenessValidator().Validate(content, cfg)
	assert.Empty(t, result.Issues)
}

func TestGrammarValidatorCleanText(t *testing.T) {
	result := NewGrammarValidator().Validate(slidesContent("The cell stores energy. Plants need light to grow."), models.ValidationConfig{})
	assert.Empty(t, result.Issues)
	assert.Equal(t, 1.0, result.Score)
}

func TestGrammarValidatorRepeatedWords(t *testing.T) {
	content := slidesContent("This is is a test with repeated repeated words.")
	v := NewGrammarValidator()
	result := v.Validate(content, models.ValidationConfig{})

	var repeated []models.ValidationIssue
	for _, issue := range result.Issues {
		if strings.HasPrefix(issue.Message, "Repeated word") {
			repeated = append(repeated, issue)
		}
	}
	require.Len(t, repeated, 1)
	assert.Equal(t, `Repeated word: "repeated"`, repeated[0].Message)

	fixed, ok := v.AutoFix(content, repeated[0])
	require.True(t, ok)
	assert.Equal(t, "This is a test with repeated words.", fixed)
}

func TestGrammarValidatorHomophonesAndCapitals(t *testing.T) {
	result := NewGrammarValidator().Validate(slidesContent("Their work is done. there is more. Its fine."), models.ValidationConfig{})

	require.Len(t, result.Issues, 2)
	assert.Equal(t, models.SeverityInfo, result.Issues[0].Severity)
	assert.Contains(t, result.Issues[0].Message, `"there"`)
	assert.Equal(t, "Sentence should start with a capital letter", result.Issues[1].Message)
	assert.InDelta(t, 0.9025, result.Score, 0.001)
}
