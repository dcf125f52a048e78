package block

// activityTypes are the block types that receive a student-facing
// sequence number.
var activityTypes = map[Type]struct{}{
	TypeMultipleChoice: {},
	TypeFillBlank:      {},
	TypeFreeAnswer:     {},
	TypeConnectPairs:   {},
	TypeImageHotspots:  {},
	TypeVideoQuiz:      {},
}

func IsActivity(t Type) bool {
	_, ok := activityTypes[t]
	return ok
}

// AssignActivityNumbers walks blocks in document order and assigns
// 1-based numbers to activity blocks. Non-activity blocks interleaved
// between activities receive no entry and do not reset the counter.
func AssignActivityNumbers(blocks []Block) map[string]int {
	numbers := make(map[string]int)
	next := 1
	for _, b := range blocks {
		if !IsActivity(b.Type) {
			continue
		}
		numbers[b.ID] = next
		next++
	}
	return numbers
}
