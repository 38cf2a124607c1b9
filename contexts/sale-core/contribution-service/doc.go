// Package contributionservice owns the sale account lifecycle.
//
// The module records inbound contributions (idempotent on the external
// payment reference), upserts pioneer accounts with their token allocation
// at the spot price of receipt, and exposes account read handlers. Accounts
// are never deleted here; settlement and vesting mutate them through their
// own engines.
package contributionservice
