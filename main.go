package main

import "github.com/linen-net/linen/cmd"

func main() {
	cmd.Execute()
}
