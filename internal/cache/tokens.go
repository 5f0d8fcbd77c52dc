package cache

import (
	"slices"
	"strings"

	"datalint/internal/logging"
)

// Unknown is stored when no dataset type or task is given.
const Unknown = "unknown"

// KnownDatasetTypes are the dataset layouts the tooling recognises. Other
// values are stored as given.
var KnownDatasetTypes = []string{"yolo", "coco", "voc", "imagefolder", Unknown}

// KnownDatasetTasks are the annotation tasks the tooling recognises.
var KnownDatasetTasks = []string{"detect", "segment", "pose", "classify", Unknown}

// NormalizeDatasetType lower-cases t, maps empty to Unknown and warns about
// unrecognised values.
func NormalizeDatasetType(t string) string {
	return normalizeToken("dataset type", t, KnownDatasetTypes)
}

// NormalizeDatasetTask is NormalizeDatasetType for tasks.
func NormalizeDatasetTask(t string) string {
	return normalizeToken("dataset task", t, KnownDatasetTasks)
}

func normalizeToken(kind, value string, known []string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Unknown
	}
	if !slices.Contains(known, v) {
		logging.Warn("Unrecognised %s %q (known: %s), storing as given", kind, value, strings.Join(known, ", "))
	}
	return v
}
