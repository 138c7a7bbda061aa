package endpoint

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// emailPattern is the format check applied to submitted email
	// values after sanitizing.
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)+$`)

	emailCharsPattern = regexp.MustCompile("[^A-Za-z0-9.!#$%&'*+/=?^_`{|}~@\\[\\]-]")
	telCharsPattern   = regexp.MustCompile(`[^0-9+()\-\s]`)
	crlfPattern       = regexp.MustCompile(`[\r\n]+`)

	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy
)

func markupStripper() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// sanitizeValue trims the raw submission value and applies a sanitize
// mode. Modes never fail; hostile input degrades to an empty string
// which the required check then rejects.
func sanitizeValue(raw string, mode string) string {
	value := strings.TrimSpace(raw)
	switch mode {
	case "email":
		return emailCharsPattern.ReplaceAllString(value, "")
	case "tel":
		return telCharsPattern.ReplaceAllString(value, "")
	case "number":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return ""
		}
		return strconv.FormatFloat(parsed, 'f', -1, 64)
	case "none":
		return value
	default: // "text"
		value = crlfPattern.ReplaceAllString(value, " ")
		stripped := markupStripper().Sanitize(value)
		// The policy entity-escapes remaining text; these values feed
		// plain-text email bodies, not HTML.
		return strings.TrimSpace(html.UnescapeString(stripped))
	}
}
