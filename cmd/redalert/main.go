package main

import "github.com/oshokin/redalert/cmd/redalert/cmd"

func main() {
	cmd.Execute()
}
