package main

import "github.com/khanhnv2901/linkguard/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
