// Package rider provides the availability record of a rider: on-shift flag and the single
// order slot that makes double-booking impossible.
package rider
