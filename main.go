package main

import "github.com/quocvuong92/clirepl/cmd"

func main() {
	cmd.Execute()
}
