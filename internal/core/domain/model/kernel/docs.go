// Package kernel holds the value objects shared by the order and rider models.
//
// UUID identifies orders and riders. It wraps github.com/google/uuid so that the zero value
// is detectable (Validate) and so that ids can be ordered (Compare) when several rider locks
// must be taken in a stable order.
package kernel
