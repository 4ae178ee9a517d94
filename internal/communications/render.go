package communications

import (
	"regexp"
	"time"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

const dateLayout = "02/01/2006"

// Render substitutes {{key}} placeholders from vars. Unknown keys are left
// in place so a missing variable is visible in the log.
func Render(text string, vars map[string]string) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		if value, ok := vars[key]; ok {
			return value
		}
		return match
	})
}

// mergeVars layers per-recipient variables over the send-wide ones and fills
// the built-in name and date keys.
func mergeVars(now time.Time, recipient Recipient, shared map[string]string) map[string]string {
	out := make(map[string]string, len(shared)+len(recipient.Variables)+2)
	out["date"] = now.Format(dateLayout)
	if recipient.Name != "" {
		out["name"] = recipient.Name
	}
	for k, v := range shared {
		out[k] = v
	}
	for k, v := range recipient.Variables {
		out[k] = v
	}
	return out
}
