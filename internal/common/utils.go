package common

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
)

var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// FilterFields renders v as a map restricted to the comma separated JSON
// keys in fields. An empty fields string keeps every key.
func FilterFields(v any, fields string) map[string]any {
	full := structToMap(v)
	if strings.TrimSpace(fields) == "" {
		return full
	}
	out := make(map[string]any)
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if val, ok := full[f]; ok {
			out[f] = val
		}
	}
	return out
}

// structToMap converts a struct to map[string]any using JSON marshaling.
func structToMap(obj any) map[string]any {
	data, _ := json.Marshal(obj)
	var result map[string]any
	_ = json.Unmarshal(data, &result)
	return result
}

// SanitizeURL cleans common copy-paste damage: surrounding whitespace,
// markdown link syntax, and stray leading or trailing punctuation.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)
	if m := markdownLinkPattern.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}
	cleaned = strings.TrimRight(cleaned, `,.)}]"'>;`)
	cleaned = strings.TrimLeft(cleaned, `([<"'`)
	return strings.TrimSpace(cleaned)
}

// ValidateURL sanitizes rawURL and checks it is an absolute http(s) URL.
func ValidateURL(rawURL string) (string, error) {
	cleaned := SanitizeURL(rawURL)
	if cleaned == "" || strings.Contains(cleaned, " ") {
		return "", fmt.Errorf("invalid URL %q", rawURL)
	}
	parsed, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	}
	if parsed.Host == "" || strings.ContainsAny(parsed.Host, "{}[]<>\"'") {
		return "", fmt.Errorf("invalid URL %q: bad host", rawURL)
	}
	return cleaned, nil
}

// RunIDArg parses the first positional argument as a run id.
func RunIDArg(c *cli.Context) (int64, error) {
	if c.NArg() == 0 {
		return 0, fmt.Errorf("run id is required")
	}
	return ParseRunID(c.Args().First())
}

// ParseRunID parses a positive run id.
func ParseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id: %s", s)
	}
	return id, nil
}

// ParseRunIDs accepts ids as separate args and/or comma separated lists.
func ParseRunIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := ParseRunID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
