package main

import "github.com/dayuer/apbridge-go/cmd"

func main() {
	cmd.Execute()
}
