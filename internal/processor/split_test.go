package processor

import (
	"testing"

	"datalint/internal/database"
)

func TestInferSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want database.Split
	}{
		{"train/images", database.SplitTrain},
		{"images/train", database.SplitTrain},
		{"TRAIN", database.SplitTrain},
		{"data/validation", database.SplitVal},
		{"val", database.SplitVal},
		{"test/images", database.SplitTest},
		{"Testing/Set1", database.SplitTest},
		{"pretrained", database.SplitTrain},
		{"train_val", database.SplitUnknown},
		{"train/test", database.SplitUnknown},
		{"images", database.SplitUnknown},
		{"", database.SplitUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			t.Parallel()
			if got := InferSplit(tt.rel); got != tt.want {
				t.Errorf("InferSplit(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}
