package main

import "transfers-client/cmd/transfers-cli/cmd"

func main() {
	cmd.Execute()
}
