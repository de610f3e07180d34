package main

import "agbridge/cmd"

func main() {
	cmd.Execute()
}
