// Package vestingengine releases token allocations in monthly tranches of
// ten percent each, up to ten tranches per account. Only settlement
// compliant accounts participate; whales and fully vested accounts are
// excluded at enumeration time. Releases flow through the payout subsystem
// and account progress is only recorded after a confirmed payout.
package vestingengine
