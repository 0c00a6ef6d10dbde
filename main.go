package main

import "github.com/vietdv277/nimbus/cmd"

func main() {
	cmd.Execute()
}
