package main

import "github.com/arekfu/posthoc/cmd"

func main() {
	cmd.Execute()
}
