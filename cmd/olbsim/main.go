// Package main runs BGAS OLB simulations from the command line.
package main

import "github.com/sarchlab/bgas/cmd/olbsim/cmd"

func main() {
	cmd.Execute()
}
