// Package domain defines core data structures used throughout the hedger.
package domain

import "fmt"

// Pair is an asset/quote trading pair. Quote is always USD for tracked pairs.
type Pair struct {
	// From base asset symbol.
	From string
	// To quote currency symbol.
	To string
}

// String returns the string representation.
func (p *Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation.
func (p *Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}
