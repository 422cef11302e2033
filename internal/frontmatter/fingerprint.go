package frontmatter

import (
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// Keys that change without changing rendered output.
var volatileKeys = []string{mdfp.FingerprintField, "lastmod", "uid", "aliases"}

// Fingerprint computes the canonical content fingerprint for a document.
// Volatile keys are excluded; remaining fields are serialized as YAML with
// sorted keys so field order does not affect the result.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	forHash := make(map[string]any, len(fields))
	for k, v := range fields {
		forHash[k] = v
	}
	for _, k := range volatileKeys {
		delete(forHash, k)
	}

	fm := ""
	if len(forHash) > 0 {
		out, err := yaml.Marshal(forHash)
		if err != nil {
			return "", err
		}
		fm = strings.TrimSuffix(string(out), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(body)), nil
}
