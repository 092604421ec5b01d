package main

import "github.com/patchjudge/patchjudge/cmd"

func main() {
	cmd.Execute()
}
