package main

import "rsswatch/internal/cmd"

func main() {
	cmd.Execute()
}
