// Package models defines the core domain models for the receipt splitter.
//
// # Models
//
//   - Receipt: the verified (or draft) receipt header and its line items
//   - ReceiptItem: one line on the receipt, before or after explosion
//   - Person: a participant the items are assigned to
//   - PersonResult: the derived per-person breakdown
//   - Allocation: the full derived breakdown for a receipt
//
// Everything here lives for a single session only. Derived models
// (PersonResult, Allocation) are recomputed on every read and never stored.
//
// # Currency
//
// Amounts are float64 values in one currency (Rupiah). No rounding is applied
// to stored amounts; only the display layer (package currency) rounds.
package models
