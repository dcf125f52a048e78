package block

import "testing"

func TestAssignActivityNumbers(t *testing.T) {
	blocks := []Block{
		{ID: "h", Type: TypeHeading},
		{ID: "q1", Type: TypeMultipleChoice},
		{ID: "p", Type: TypeParagraph},
		{ID: "q2", Type: TypeFillBlank},
		{ID: "img", Type: TypeImage},
		{ID: "q3", Type: TypeVideoQuiz},
	}

	numbers := AssignActivityNumbers(blocks)

	want := map[string]int{"q1": 1, "q2": 2, "q3": 3}
	if len(numbers) != len(want) {
		t.Fatalf("expected %d numbered blocks, got %d", len(want), len(numbers))
	}
	for id, n := range want {
		if numbers[id] != n {
			t.Errorf("block %s: expected %d, got %d", id, n, numbers[id])
		}
	}
	if _, ok := numbers["h"]; ok {
		t.Error("non-activity block received a number")
	}
}

func TestActivityNumbersMonotonic(t *testing.T) {
	// Interleave every activity type with non-activities and check the
	// sequence is strictly increasing with no gaps.
	activity := []Type{TypeMultipleChoice, TypeFillBlank, TypeFreeAnswer, TypeConnectPairs, TypeImageHotspots, TypeVideoQuiz}
	var blocks []Block
	for i, at := range activity {
		blocks = append(blocks, Block{ID: string(rune('a' + i)), Type: TypeSpacer})
		blocks = append(blocks, Block{ID: string(at), Type: at})
	}

	numbers := AssignActivityNumbers(blocks)

	expected := 1
	for _, b := range blocks {
		if !IsActivity(b.Type) {
			continue
		}
		if numbers[b.ID] != expected {
			t.Errorf("block %s: expected %d, got %d", b.ID, expected, numbers[b.ID])
		}
		expected++
	}
}

func TestAssignActivityNumbersEmpty(t *testing.T) {
	if n := AssignActivityNumbers(nil); len(n) != 0 {
		t.Errorf("expected empty map, got %v", n)
	}
}
