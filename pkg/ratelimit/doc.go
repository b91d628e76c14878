// Package ratelimit paces requests to the tax portal.
//
// Pacer is used by the batch downloader: each invoice is followed by a
// short gap, and an invoice that failed with HTTP 429 is followed by one
// longer gap.
//
//	pacer := ratelimit.NewPacer(300*time.Millisecond, 2*time.Second)
//	if errors.IsRateLimit(err) {
//	    pacer.Escalate()
//	}
//	pacer.Pace(ctx)
//
// TokenBucket is an optional requests-per-minute ceiling for the portal
// client. It refills to capacity once per period.
package ratelimit
