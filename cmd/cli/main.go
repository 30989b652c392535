package main

import "github.com/ewilliams-labs/artistcompare/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
