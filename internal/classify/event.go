package classify

import (
	"regexp"
	"strings"
)

// EventCategory is the kind of corporate event an article reports.
type EventCategory string

const (
	EventMA          EventCategory = "ma"
	EventFDA         EventCategory = "fda"
	EventLawsuit     EventCategory = "lawsuit"
	EventEarnings    EventCategory = "earnings"
	EventGuidance    EventCategory = "guidance"
	EventPartnership EventCategory = "partnership"
	EventRegulatory  EventCategory = "regulatory"
	EventOther       EventCategory = "other"
)

type eventRule struct {
	event   EventCategory
	pattern *regexp.Regexp
}

// Order matters: an earnings release that mentions guidance is earnings.
var eventRules = []eventRule{
	{EventMA, regexp.MustCompile(`\b(m&a|acquisition|acquires|merger|buyout|takeover)\b`)},
	{EventFDA, regexp.MustCompile(`\b(fda|pdufa|phase\s*(1|2|3|i|ii|iii)|trial|ind|approval|clearance)\b`)},
	{EventLawsuit, regexp.MustCompile(`\b(class action|securities lawsuit|lawsuit|litigation)\b`)},
	{EventEarnings, regexp.MustCompile(`\b(earnings|q[1-4]|eps|revenue|results)\b`)},
	{EventGuidance, regexp.MustCompile(`\b(guidance|outlook|raise guidance|lower guidance)\b`)},
	{EventPartnership, regexp.MustCompile(`\b(partnership|collaboration|contract|deal)\b`)},
	{EventRegulatory, regexp.MustCompile(`\b(regulator|regulatory|sec|doj|antitrust|cfius|fine|penalty)\b`)},
}

// EventFromText classifies an article from its keywords and free text.
func EventFromText(keywords []string, text string) EventCategory {
	t := strings.ToLower(strings.Join(keywords, " ") + " " + text)
	for _, rule := range eventRules {
		if rule.pattern.MatchString(t) {
			return rule.event
		}
	}
	return EventOther
}
