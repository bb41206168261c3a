package main

import "github.com/rudransh-shrivastava/peer-tac-toe/internal/cli/cmd"

func main() {
	cmd.Execute()
}
