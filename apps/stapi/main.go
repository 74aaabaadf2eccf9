package main

import "github.com/quatton/skintwin/apps/stapi/cmd"

func main() {
	cmd.Execute()
}
