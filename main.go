package main

import "github.com/surge-downloader/swarmpeer/cmd"

func main() {
	cmd.Execute()
}
