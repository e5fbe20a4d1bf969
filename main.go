package main

import "github.com/commlink-dev/commlink/cmd"

func main() {
	cmd.Execute()
}
