// Package main is the entry point for the docintel ingestion pipeline.
package main

import (
	"docintel/cmd"
)

func main() {
	cmd.Execute()
}
