package main

import "tx-tracker/cmd/tracker/cmd"

func main() {
	cmd.Execute()
}
