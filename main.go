package main

import "github.com/shaharia-lab/restock-notifier/cmd"

func main() {
	cmd.Execute()
}
