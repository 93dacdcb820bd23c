package main

import "github.com/easyengine/ee-dash/cmd"

func main() {
	cmd.Execute()
}
