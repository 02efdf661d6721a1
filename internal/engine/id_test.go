package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name   string
		cohort string
		want   string
	}{
		{"Alice Smith", "2", "2-alice-smith"},
		{"ALICE SMITH", "2", "2-alice-smith"},
		{"Alice   Smith", "2", "2-alice-smith"},
		{"Alice\tSmith", "2", "2-alice-smith"},
		{"Bob Smith", "3", "3-bob-smith"},
		{"Mary Jane Watson", "10", "10-mary-jane-watson"},
		{"Alice Smith", "", "alice-smith"},
		{"José Núñez", "1", "1-josé-núñez"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateID(tt.name, tt.cohort))
		})
	}
}

func TestGenerateIDNormalizesComposition(t *testing.T) {
	composed := "Jos\u00e9"
	decomposed := "Jose\u0301"

	assert.Equal(t, GenerateID(composed, "1"), GenerateID(decomposed, "1"))
}

func TestGenerateIDIsPure(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, "2-alice-smith", GenerateID("Alice Smith", "2"))
	}
}
