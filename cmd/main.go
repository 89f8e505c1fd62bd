package main

import cmd "github.com/kerbaras/mangadl/cmd/mangas"

func main() {
	cmd.Execute()
}
