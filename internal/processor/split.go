package processor

import (
	"strings"

	"datalint/internal/database"
)

// InferSplit derives the dataset split from a record's relative directory.
// Exactly one of "train", "val" and "test" must occur as a case-insensitive
// substring; none or several yield SplitUnknown. Substring matching means
// "validation" and "pretrained" count.
func InferSplit(relativePath string) database.Split {
	p := strings.ToLower(relativePath)

	match := database.SplitUnknown
	hits := 0
	for _, s := range []database.Split{database.SplitTrain, database.SplitVal, database.SplitTest} {
		if strings.Contains(p, string(s)) {
			match = s
			hits++
		}
	}
	if hits != 1 {
		return database.SplitUnknown
	}
	return match
}
