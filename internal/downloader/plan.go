package downloader

import "retreivr/internal/consts"

// Step is one planned extraction attempt: a client identity (empty means the
// extraction layer's default client, with no extractor override) and a format
// selector.
type Step struct {
	Client  string
	Headers map[string]string
	Format  string
}

// Label names the step for logs and metrics.
func (s Step) Label() string {
	if s.Client == "" {
		return "default"
	}

	return s.Client
}

// Plan is the ordered sequence of extraction attempts for one video.
type Plan struct {
	Steps []Step
}

// BuildPlan constructs the attempt plan for the given strictness mode. The
// profile chain comes first, followed by a default-client step and, always, a
// generic best-quality fallback step. formatOverride, when non-empty,
// replaces the primary format selector but never the final fallback.
func BuildPlan(strictness, formatOverride string) Plan {
	primary := consts.FormatStrict
	if strictness == "relaxed" {
		primary = consts.FormatBest
	}

	if formatOverride != "" {
		primary = formatOverride
	}

	var steps []Step
	for _, profile := range Chain() {
		steps = append(steps, Step{
			Client:  profile.Client,
			Headers: profile.Headers,
			Format:  primary,
		})
	}

	// Default client with no extractor override, then the generic best
	// selector as the last resort regardless of mode.
	steps = append(steps,
		Step{Format: primary},
		Step{Format: consts.FormatBest},
	)

	return Plan{Steps: steps}
}
