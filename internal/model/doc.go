// Package model defines the exchange-agnostic types shared across tradewire.
//
// Conventions:
//   - Prices and sizes: int64 tick counts for one Symbol, never mixed across symbols
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Order ids: the client-chosen id, falling back to the exchange id when none was given
package model
