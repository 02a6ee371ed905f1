package main

import "github.com/KaramelBytes/titanic-analytics/cmd"

func main() {
	cmd.Execute()
}
