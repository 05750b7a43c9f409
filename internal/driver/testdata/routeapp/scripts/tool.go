// Package scripts holds local tooling excluded from generation.
package scripts

func Run() {}
