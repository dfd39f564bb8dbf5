package password

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/passring/passring/internal/logger"
)

const breachPrefixLength = 5

// BreachChecker queries an external breach-intelligence range API using the
// k-anonymity protocol: only the first 5 hex characters of the password's
// SHA-1 digest leave the machine; the candidate suffix list is scanned
// locally for an exact match.
type BreachChecker struct {
	client *resty.Client
	logger *logger.Logger
}

// NewBreachChecker builds a checker against baseURL (the service root above
// the /range/{prefix} path).
func NewBreachChecker(baseURL string, timeout time.Duration, log *logger.Logger) *BreachChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)

	return &BreachChecker{client: cli, logger: log}
}

// Check reports whether pw appears in the breach corpus. Every failure mode
// (network, non-2xx status, malformed body) resolves to false: a breach
// check must never block the user's workflow.
func (b *BreachChecker) Check(ctx context.Context, pw string) bool {
	sum := sha1.Sum([]byte(pw))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:breachPrefixLength], digest[breachPrefixLength:]

	resp, err := b.client.R().
		SetContext(ctx).
		Get("/range/" + prefix)
	if err != nil {
		b.logger.Warn().Err(err).Str("func", "BreachChecker.Check").Msg("breach lookup failed, failing open")
		return false
	}
	if resp.IsError() {
		b.logger.Warn().Int("status", resp.StatusCode()).Str("func", "BreachChecker.Check").Msg("breach lookup returned error status, failing open")
		return false
	}

	// Response body: newline-delimited "SUFFIX:COUNT" pairs.
	for _, line := range strings.Split(resp.String(), "\n") {
		candidate, _, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		if strings.EqualFold(candidate, suffix) {
			return true
		}
	}
	return false
}
