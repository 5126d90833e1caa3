// ABOUTME: Activity type classification as an ordered rule chain
// ABOUTME: Explicit type codes, then body keywords, then source, then fallback
package normalize

import "strings"

// Canonical activity types.
const (
	TypeEmail           = "EMAIL"
	TypeIncomingEmail   = "INCOMING_EMAIL"
	TypeForwardedEmail  = "FORWARDED_EMAIL"
	TypeLinkedInMessage = "LINKEDIN_MESSAGE"
	TypeSMS             = "SMS"
	TypeWhatsApp        = "WHATS_APP"
	TypeCall            = "CALL"
	TypeMeeting         = "MEETING"
	TypeTask            = "TASK"
	TypeNote            = "NOTE"
)

// ActivityInput carries the raw signals classification draws on.
type ActivityInput struct {
	TypeCode string // explicit channel/type code from the API, may be ""
	Body     string // note/communication body text
	Source   string // source system hint
	Default  string // per-object-type fallback
}

// explicit type codes, matched verbatim after upper-casing.
var typeCodes = map[string]string{
	"EMAIL":            TypeEmail,
	"INCOMING_EMAIL":   TypeIncomingEmail,
	"FORWARDED_EMAIL":  TypeForwardedEmail,
	"LINKEDIN_MESSAGE": TypeLinkedInMessage,
	"SMS":              TypeSMS,
	"WHATS_APP":        TypeWhatsApp,
	"CALL":             TypeCall,
	"MEETING":          TypeMeeting,
	"TASK":             TypeTask,
	"NOTE":             TypeNote,
}

// platform keywords scanned in body and source text, in match order.
var platformKeywords = []struct {
	keyword string
	result  string
}{
	{"linkedin", TypeLinkedInMessage},
	{"whatsapp", TypeWhatsApp},
	{"whats_app", TypeWhatsApp},
	{"sms", TypeSMS},
}

type classifierRule struct {
	name  string
	apply func(ActivityInput) (string, bool)
}

// classifierRules is evaluated strictly in order. The precedence is a hard
// compatibility invariant: reordering reclassifies historical data and is a
// breaking schema change.
var classifierRules = []classifierRule{
	{name: "explicit-type-code", apply: matchTypeCode},
	{name: "body-keywords", apply: matchBodyKeywords},
	{name: "source-hint", apply: matchSourceHint},
	{name: "raw-type", apply: matchRawType},
}

// ClassifyActivity resolves the canonical activity type for one engagement.
func ClassifyActivity(in ActivityInput) string {
	for _, rule := range classifierRules {
		if result, ok := rule.apply(in); ok {
			return result
		}
	}
	return in.Default
}

func matchTypeCode(in ActivityInput) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(in.TypeCode))
	if code == "" {
		return "", false
	}
	result, ok := typeCodes[code]
	return result, ok
}

func matchBodyKeywords(in ActivityInput) (string, bool) {
	body := strings.ToLower(in.Body)
	if body == "" {
		return "", false
	}
	for _, kw := range platformKeywords {
		if strings.Contains(body, kw.keyword) {
			return kw.result, true
		}
	}
	return "", false
}

func matchSourceHint(in ActivityInput) (string, bool) {
	source := strings.ToLower(in.Source)
	if source == "" {
		return "", false
	}
	for _, kw := range platformKeywords {
		if strings.Contains(source, kw.keyword) {
			return kw.result, true
		}
	}
	return "", false
}

// matchRawType keeps an unrecognized explicit code as-is rather than
// collapsing it to the default.
func matchRawType(in ActivityInput) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(in.TypeCode))
	if code == "" {
		return "", false
	}
	return code, true
}
