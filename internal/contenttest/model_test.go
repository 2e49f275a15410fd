// internal/contenttest/model_test.go
package contenttest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCase_SetAnswersPushesToFields(t *testing.T) {
	tc := newMatchedTestCase(t, problemXML(customResponse(2, "")), correctAnswers())
	require.False(t, tc.AnswersChanged())

	tc.SetAnswers(Answers{inputBase + "_2_1": "4"})

	assert.True(t, tc.AnswersChanged())
	assert.Equal(t, "4", tc.Responses[0].Fields[0].Answer)
	assert.Equal(t, "", tc.Responses[0].Fields[1].Answer, "missing answers blank their field")
}

func TestTestCase_SetAnswersUnchangedLeavesFields(t *testing.T) {
	tc := newMatchedTestCase(t, problemXML(customResponse(2, "")), correctAnswers())
	tc.Responses[0].Fields[0].Answer = "stale"

	tc.SetAnswers(correctAnswers())

	assert.False(t, tc.AnswersChanged())
	assert.Equal(t, "stale", tc.Responses[0].Fields[0].Answer)
}

func TestTestCase_SetAnswersNil(t *testing.T) {
	tc := newMatchedTestCase(t, problemXML(customResponse(2, "")), correctAnswers())

	tc.SetAnswers(nil)

	assert.NotNil(t, tc.Answers)
	assert.Empty(t, tc.Answers)
	for _, f := range tc.OrderedFields() {
		assert.Empty(t, f.Answer)
	}
}

func TestTestCase_RebuildAnswers(t *testing.T) {
	tc := newMatchedTestCase(t, problemXML(customResponse(2, "")), correctAnswers())
	tc.Answers["orphan"] = "x"

	tc.RebuildAnswers()

	assert.Equal(t, correctAnswers(), tc.Answers)
}

func TestTestCase_OrderedFields(t *testing.T) {
	tc := newMatchedTestCase(t, problemXML(customResponse(2, ""), customResponse(1, "")), Answers{})
	tc.Responses[0], tc.Responses[1] = tc.Responses[1], tc.Responses[0]

	var ids []string
	for _, f := range tc.OrderedFields() {
		ids = append(ids, f.StringID)
	}
	assert.Equal(t, []string{inputBase + "_2_1", inputBase + "_2_2", inputBase + "_3_1"}, ids)
}

func TestTestCase_CloneIsDeep(t *testing.T) {
	tc := newMatchedTestCase(t, problemXML(customResponse(2, "")), correctAnswers())
	cp := tc.Clone()

	cp.Answers[inputBase+"_2_1"] = "9"
	cp.Responses[0].Fields[0].Answer = "9"
	cp.Responses[0].Hash = "changed"

	assert.Equal(t, "5", tc.Answers[inputBase+"_2_1"])
	assert.Equal(t, "5", tc.Responses[0].Fields[0].Answer)
	assert.NotEqual(t, "changed", tc.Responses[0].Hash)
	assert.False(t, tc.AnswersChanged())
	assert.True(t, cp.AnswersChanged())
}

func TestAnswers_EqualAndKeys(t *testing.T) {
	assert.True(t, Answers(nil).Equal(Answers{}))
	assert.False(t, Answers{"a": "1"}.Equal(Answers{"a": "2"}))
	assert.False(t, Answers{"a": "1"}.Equal(Answers{"b": "1"}))
	assert.Equal(t, []string{"a", "b", "c"}, Answers{"c": "", "a": "", "b": ""}.Keys())
}
