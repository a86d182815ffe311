package main

import (
	"github.com/yahgwai/aep-fee-tracker-sub001/cmd"
)

func main() {
	cmd.Execute()
}
