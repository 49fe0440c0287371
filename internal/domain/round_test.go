package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChoiceStepKeepsZeroCorrectIndex(t *testing.T) {
	step := UltimateStep{
		Kind:         StepFlag,
		Options:      make([]ChoiceOption, ChoiceSize),
		CorrectIndex: 0,
	}
	raw, err := json.Marshal(step)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"correctIndex":0`) {
		t.Fatalf("answer pointer missing from %s", raw)
	}
}
