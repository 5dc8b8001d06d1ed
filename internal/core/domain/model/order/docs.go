// Package order holds the order aggregate of the dispatch engine and the events it is
// rebuilt from.
//
// The package includes:
//   - Event: an immutable fact about one order, identified by (order id, sequence)
//   - Order: the aggregate, folded from its events by Apply and Replay
//   - Snapshot: an immutable copy of an Order shared with read models and the HTTP surface
//   - Status, Role and Actor: the lifecycle states and the parties that move orders along it
//
// Key business rules:
//   - an order stream starts with OrderCreated and has gap-free sequences
//   - the lifecycle is Created -> Assigned -> PickedUp -> InTransit -> Delivered, and any
//     non-terminal order can be Cancelled
//   - a rider is attached from Assigned on and stays on a Cancelled order as history
//
// Who may take which edge is not decided here; see the transition validator in the
// services package.
package order
