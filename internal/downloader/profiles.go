package downloader

// Profile is a named client identity with a plausible matching header set.
// Different simulated clients receive different throttling treatment from the
// extraction source; rotating through several maximizes success probability
// without operator intervention.
type Profile struct {
	Client  string
	Headers map[string]string
}

// Chain returns the extraction profile chain in its fixed preference order:
// most resilient first, most easily blocked last.
func Chain() []Profile {
	return []Profile{
		{
			Client: "android",
			Headers: map[string]string{
				"User-Agent":      "com.google.android.youtube/19.42.37 (Linux; Android 14)",
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
		{
			Client: "tv_embedded",
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (SmartTV; Linux; Tizen 6.5) AppleWebKit/537.36",
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
		{
			Client: "web",
			Headers: map[string]string{
				"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)" +
					" AppleWebKit/605.1.15 (KHTML, like Gecko) Safari/605.1.15",
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
	}
}
