package ai

import (
	"regexp"
	"strings"

	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
)

// fieldPatterns matches one xml-ish tag pair per delivery field. (?s) lets a
// value span multiple lines; the lazy group stops at the first closing tag.
var fieldPatterns = map[conversation.FieldKey]*regexp.Regexp{
	conversation.FieldName:    regexp.MustCompile(`(?s)<user_name>(.*?)</user_name>`),
	conversation.FieldCity:    regexp.MustCompile(`(?s)<user_city>(.*?)</user_city>`),
	conversation.FieldAddress: regexp.MustCompile(`(?s)<user_address>(.*?)</user_address>`),
}

// ParseFields pulls tagged delivery details out of a model reply. Tags that
// are absent or hold only whitespace are skipped, so the result carries only
// values worth merging.
func ParseFields(reply string) map[conversation.FieldKey]string {
	fields := make(map[conversation.FieldKey]string)
	for key, pattern := range fieldPatterns {
		match := pattern.FindStringSubmatch(reply)
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[1])
		if value == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}
