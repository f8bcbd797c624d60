package main

import "github.com/frahmantamala/timetrack/cmd"

func main() {
	cmd.Execute()
}
