package browser

import (
	"math/rand"

	"ListingScraper/pkg/config"
)

// Identity is what the session presents to the site. It is fixed when the
// session opens and never changes mid-run.
type Identity struct {
	UserAgent string
	Language  string
}

// PickIdentity applies the identity policy. With randomisation on, the user
// agent is drawn uniformly from the pool; otherwise the fixed string wins,
// then the first pool entry. An empty user agent keeps the browser default.
func PickIdentity(policy config.IdentityConfig, rng *rand.Rand) Identity {
	id := Identity{Language: policy.Language}
	if id.Language == "" {
		id.Language = "en-US"
	}

	switch {
	case policy.RandomizeUserAgent && len(policy.UserAgents) > 0:
		if rng == nil {
			id.UserAgent = policy.UserAgents[rand.Intn(len(policy.UserAgents))]
		} else {
			id.UserAgent = policy.UserAgents[rng.Intn(len(policy.UserAgents))]
		}
	case policy.FixedUserAgent != "":
		id.UserAgent = policy.FixedUserAgent
	case len(policy.UserAgents) > 0:
		id.UserAgent = policy.UserAgents[0]
	}
	return id
}
