// Package dto holds the wire command variants. Each variant registers
// itself with the core command registry in init, so importing this
// package for side effects is all a server binary needs to speak the
// full protocol.
package dto
