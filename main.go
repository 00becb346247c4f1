package main

import "pdf_minimizer/cmd"

func main() {
	cmd.Execute()
}
