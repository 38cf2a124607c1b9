// Package settlementengine implements the one-shot end-of-sale whale
// trim-back: every account holding more than the concentration threshold of
// the final pool is refunded down to the threshold through the payout
// subsystem. A lease-based run lock keeps scheduler, admin, and manual
// triggers from running the settlement concurrently.
package settlementengine
