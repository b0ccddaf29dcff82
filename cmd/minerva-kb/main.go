// Package main is the entry point for the Minerva knowledge base service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	kb "github.com/kart-io/minerva/internal/kb"
)

func main() {
	kb.NewApp().Run()
}
