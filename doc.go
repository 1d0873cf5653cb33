// Package rebalance decides whether a stock portfolio should be moved to a
// candidate allocation.
//
// The core functionalities include:
//   - Identity: resolving broker display names and exchange symbols to one
//     canonical instrument id.
//   - Replay: rebuilding holdings, average cost basis and weights from a
//     ledger of trades, one portfolio state per trade date.
//   - Estimation: the value-weighted expected return of a portfolio, from
//     dated snapshots of current and analyst target prices.
//   - Decision: comparing the implemented portfolio with a candidate, net of
//     the transition cost, and sizing the orders when rebalancing.
//   - Decoding: reading ledgers, snapshots and candidates from their usual
//     JSONL, CSV and JSON formats.
//
// This package serves as the foundational logic for the `rebal` command-line
// tool. Malformed input records are logged and skipped, missing data degrades
// a decision to Unknown rather than failing.
package rebalance
