/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "wirebot/cmd"

func main() {
	cmd.Execute()
}
