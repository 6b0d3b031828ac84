// Package models defines the core domain models for clubsplit.
//
// # Records
//
// The following models are persisted by a storage.Store:
//   - Expense: a shared cost fronted by one member and split across participants
//   - ParticipantShare: one participant's portion of an expense
//   - Settlement: a recorded real-world payment between two members
//   - Member: a directory entry used for display names and roles
//
// # Views
//
// Balances, debt edges and suggested transfers are derived on every request by
// the calculator package and are never stored.
//
// # Design Principles
//
//  1. Money is float64 at the boundary; comparisons go through calculator.Tolerance.
//  2. Relationships use ID strings instead of pointers.
//  3. Every record has exactly one canonical shape; alternative field
//     spellings from external exports are resolved by the ingest package.
package models
