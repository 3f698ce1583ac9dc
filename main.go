package main

import "github.com/eztransfer/signaling/pkg/cmd"

func main() {
	cmd.Run()
}
