// Package legacy carries a type error and is not reachable from any route.
package legacy

var Flag int = "enabled"
