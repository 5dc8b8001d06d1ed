// Package services provides the domain services of the dispatch engine: the rules that span
// an order and its riders and do not belong to either aggregate alone.
//
// The package includes:
//   - TransitionValidator: the order lifecycle table and the role allowed on each edge
//   - AssignmentCoordinator: the owner of rider slots, serializing assignment, reassignment
//     and release per rider
//
// Both are free of I/O. The coordinator persists nothing itself; callers hand it the commit
// that makes a decision durable and it runs that commit inside its critical section.
package services
