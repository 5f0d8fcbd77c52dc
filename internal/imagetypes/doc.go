// Package imagetypes decides which files in a dataset are images.
//
// The allow-list is an injectable value rather than a global so the scan can
// be widened from configuration:
//
//	exts := imagetypes.Default()
//	exts.Add("jfif")
//	if exts.Matches(path) {
//	    // queue for processing
//	}
//
// Matching is case-insensitive and works on the final extension only, so
// "IMG.JPG" matches and "archive.png.bak" does not. FormatOf groups
// extensions that share a decoder (jpg/jpeg, tif/tiff).
//
// The package has no dependencies beyond the standard library so it can be
// imported from anywhere without cycles.
package imagetypes
