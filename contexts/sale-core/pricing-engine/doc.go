// Package pricingengine implements the scarcity pricing surface of the sale.
//
// The module derives the spot price from the fixed sale supply and the
// current water level (total pool liquidity) and exposes read-only HTTP
// handlers for price, water level, and the alpha-gain display quote.
package pricingengine
