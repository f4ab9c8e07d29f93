/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/mikesmitty/aqi-gauge/cmd"

func main() {
	cmd.Execute()
}
