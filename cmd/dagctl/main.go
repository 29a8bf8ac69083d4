package main

import "github.com/LENAX/dag-engine/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
