package main

import "ankimcp/cmd/ankimcp/root"

func main() {
	root.Execute()
}
