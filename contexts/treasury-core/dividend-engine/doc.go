// Package dividendengine distributes a profit pot proportionally to token
// allocations, with each account's share capped at ten percent of the pot
// being distributed. Dividends flow through the payout subsystem and never
// mutate account state.
package dividendengine
