package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderPushAccumulates(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Push(Detail{Type: FieldName, Value: "Alice Smith"}))
	require.NoError(t, b.Push(Detail{Type: FieldName, Value: "Alice Smith"}))
	require.NoError(t, b.Push(Detail{Type: FieldName, Value: "Alice J. Smith"}))

	assert.Equal(t, []string{"Alice Smith", "Alice Smith", "Alice J. Smith"}, b.MetaName)
}

func TestBuilderPushRejectsUnknownField(t *testing.T) {
	b := NewBuilder()
	err := b.Push(Detail{Type: FieldDOI, Value: "10.1/x"})
	assert.Error(t, err)

	err = b.Push(Detail{Type: Field("nickname"), Value: "al"})
	assert.Error(t, err)
}

func TestBuilderIdentifiersPriorityOrder(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Push(Detail{Type: FieldOrc, Value: "0000-0001"}))
	require.NoError(t, b.Push(Detail{Type: FieldSemScholar, Value: "ss-9"}))
	require.NoError(t, b.Push(Detail{Type: FieldGithub, Value: "alicedev"}))
	require.NoError(t, b.Push(Detail{Type: FieldGithub, Value: "alice-alt"}))

	assert.Equal(t, []Identifier{
		{Type: FieldGithub, Value: "alicedev"},
		{Type: FieldGithub, Value: "alice-alt"},
		{Type: FieldSemScholar, Value: "ss-9"},
		{Type: FieldOrc, Value: "0000-0001"},
	}, b.Identifiers())
}

func TestBuilderContains(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Push(Detail{Type: FieldGithub, Value: "alicedev"}))

	assert.True(t, b.Contains(FieldGithub, []string{"other", "alicedev"}))
	assert.False(t, b.Contains(FieldSemScholar, []string{"alicedev"}), "match is per field type")
	assert.False(t, b.Contains(FieldGithub, nil))
}

func TestBuilderCloneIsDeep(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Push(Detail{Type: FieldName, Value: "Alice"}))

	c := b.Clone()
	require.NoError(t, c.Push(Detail{Type: FieldName, Value: "Bob"}))

	assert.Equal(t, []string{"Alice"}, b.MetaName)
	assert.Equal(t, []string{"Alice", "Bob"}, c.MetaName)
}

func TestBuilderJSONNeverNull(t *testing.T) {
	var b Builder
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
	assert.Contains(t, string(data), `"idGithub":[]`)
}

func TestFieldClassification(t *testing.T) {
	for _, f := range IdentifierFields {
		assert.True(t, f.IsIdentifier(), f)
		assert.True(t, f.IsResearcherField(), f)
	}
	assert.False(t, FieldName.IsIdentifier())
	assert.False(t, FieldDOI.IsResearcherField())

	f, err := ParseField("idDoi")
	require.NoError(t, err)
	assert.Equal(t, FieldDOI, f)

	_, err = ParseField("bogus")
	assert.Error(t, err)
}
