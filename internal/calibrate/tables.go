package calibrate

import "github.com/hoanghai1803/newspulse/internal/classify"

const (
	defaultSourceTrust = 0.50
	defaultEventWeight = 0.55
)

var sourceTrust = map[classify.SourceTier]float64{
	classify.SourceWire:            0.80,
	classify.SourceMajorPress:      0.75,
	classify.SourceRegionalPress:   0.65,
	classify.SourceFinancialPortal: 0.60,
	classify.SourceCompanyIR:       0.55,
	classify.SourceBlogForum:       0.50,
	classify.SourceUnknown:         defaultSourceTrust,
}

var eventWeight = map[classify.EventCategory]float64{
	classify.EventMA:          0.75,
	classify.EventFDA:         0.75,
	classify.EventRegulatory:  0.75,
	classify.EventLawsuit:     0.75,
	classify.EventEarnings:    0.68,
	classify.EventGuidance:    0.68,
	classify.EventPartnership: 0.62,
	classify.EventOther:       defaultEventWeight,
}

// SourceTrust returns the trust probability for a source tier.
func SourceTrust(tier classify.SourceTier) float64 {
	if v, ok := sourceTrust[tier]; ok {
		return v
	}
	return defaultSourceTrust
}

// EventWeight returns the weight probability for an event category.
func EventWeight(event classify.EventCategory) float64 {
	if v, ok := eventWeight[event]; ok {
		return v
	}
	return defaultEventWeight
}
