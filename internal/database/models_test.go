package database

import "testing"

func TestParseSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Split
	}{
		{"train", SplitTrain},
		{"VAL", SplitVal},
		{"test", SplitTest},
		{"unknown", SplitUnknown},
		{"", SplitUnknown},
		{"validation", SplitUnknown},
	}
	for _, tt := range tests {
		if got := ParseSplit(tt.in); got != tt.want {
			t.Errorf("ParseSplit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImageRecordLocation(t *testing.T) {
	t.Parallel()

	root := ImageRecord{Filename: "a.png"}
	if got := root.Location(); got != "a.png" {
		t.Errorf("Location() = %q, want a.png", got)
	}
	nested := ImageRecord{Filename: "a.png", RelativePath: "train/images"}
	if got := nested.Location(); got != "train/images/a.png" {
		t.Errorf("Location() = %q, want train/images/a.png", got)
	}
}

func TestImageRecordDimensions(t *testing.T) {
	t.Parallel()

	var r ImageRecord
	if w, h, c := r.Dimensions(); w != 0 || h != 0 || c != 0 {
		t.Errorf("Dimensions() of undecoded = %d,%d,%d, want zeros", w, h, c)
	}
	w, h, c := 10, 20, 4
	r = ImageRecord{Width: &w, Height: &h, Channels: &c}
	if gw, gh, gc := r.Dimensions(); gw != 10 || gh != 20 || gc != 4 {
		t.Errorf("Dimensions() = %d,%d,%d, want 10,20,4", gw, gh, gc)
	}
}
