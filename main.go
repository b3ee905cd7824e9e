package main

import "github.com/assetpipe/usdpublish/cmd"

func main() {
	cmd.Execute()
}
