package util

import (
	"errors"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ArtifactExt is the extension of every structured-data artifact.
const ArtifactExt = ".json"

var (
	errInvalidFileName = errors.New("invalid file name")
	unsafeChars        = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	windowsDevices     = map[string]struct{}{
		"CON": {}, "AUX": {}, "COM1": {}, "COM2": {}, "COM3": {}, "COM4": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "PRN": {}, "NUL": {},
	}
)

// SecureFileName reduces an uploaded file name to a flat ASCII name made of
// [A-Za-z0-9_.-]. Path separators become word breaks, whitespace runs become a
// single underscore and leading/trailing dots and underscores are trimmed.
// An empty result means nothing usable was left.
func SecureFileName(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), name)
	if err != nil {
		folded = name
	}
	var ascii strings.Builder
	for _, r := range folded {
		if r < 128 {
			ascii.WriteRune(r)
		}
	}
	s := strings.NewReplacer("/", " ", "\\", " ").Replace(ascii.String())
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")

	if base := strings.ToUpper(strings.SplitN(s, ".", 2)[0]); base != "" {
		if _, ok := windowsDevices[base]; ok {
			s = "_" + s
		}
	}
	return s
}

// ArtifactName derives the artifact file name for an uploaded file:
// the secured base name with its last extension replaced by .json.
func ArtifactName(uploadName string) (string, error) {
	secure := SecureFileName(uploadName)
	if secure == "" {
		return "", errInvalidFileName
	}
	base := strings.TrimSuffix(secure, path.Ext(secure))
	if base == "" {
		base = secure
	}
	return base + ArtifactExt, nil
}

// ValidateArtifactName rejects names that could escape the flat artifact
// namespace or that do not carry the artifact extension. Dots inside a name
// are fine; every name ArtifactName produces passes.
func ValidateArtifactName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return errInvalidFileName
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return errInvalidFileName
	}
	if !strings.HasSuffix(name, ArtifactExt) || name == ArtifactExt {
		return errInvalidFileName
	}
	return nil
}
