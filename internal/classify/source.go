// Package classify maps articles onto the enumerated source tiers and event
// categories consumed by the calibrator. The rules are heuristic; anything
// that matches no rule falls back to SourceUnknown or EventOther.
package classify

import (
	"net/url"
	"regexp"
	"strings"
)

// SourceTier is the trust tier of the publisher behind an article URL.
type SourceTier string

const (
	SourceWire            SourceTier = "wire"
	SourceMajorPress      SourceTier = "major_press"
	SourceRegionalPress   SourceTier = "regional_press"
	SourceFinancialPortal SourceTier = "financial_portal"
	SourceCompanyIR       SourceTier = "company_ir"
	SourceBlogForum       SourceTier = "blog_forum"
	SourceUnknown         SourceTier = "unknown"
)

type sourceRule struct {
	tier    SourceTier
	pattern *regexp.Regexp
}

// Evaluated in order; the first match wins. Full domains are anchored to a
// label boundary so that e.g. microsoft.com is not read as ft.com.
var sourceRules = []sourceRule{
	{SourceWire, regexp.MustCompile(`(prnewswire|businesswire|globenewswire|newsfile|accesswire)|(^|\.)nasdaq\.com$`)},
	{SourceMajorPress, regexp.MustCompile(`(reuters|bloomberg|wsj|apnews|cnbc|marketwatch|forbes|barrons|nytimes)|(^|\.)ft\.com$`)},
	{SourceFinancialPortal, regexp.MustCompile(`(finance\.yahoo|seekingalpha|benzinga|zacks|thestreet|investorplace|tipranks)|(^|\.)(fool|investing|investors)\.com$`)},
	{SourceRegionalPress, regexp.MustCompile(`(bizjournals|latimes|chicagotribune|bostonglobe|seattletimes|startribune|dallasnews|sfchronicle|denverpost)`)},
	{SourceBlogForum, regexp.MustCompile(`(substack|wordpress|blogspot|stocktwits)|(^|\.)(medium|reddit)\.com$`)},
	{SourceCompanyIR, regexp.MustCompile(`(\.corp\.|\.ir\.|^ir\.|^investors?\.)`)},
}

// SourceTierFromURL classifies the host of articleURL. Unparseable or empty
// URLs yield SourceUnknown.
func SourceTierFromURL(articleURL string) SourceTier {
	host := hostname(articleURL)
	if host == "" {
		return SourceUnknown
	}
	for _, rule := range sourceRules {
		if rule.pattern.MatchString(host) {
			return rule.tier
		}
	}
	return SourceUnknown
}

func hostname(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
