/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/mikesmitty/aqi-gauge/pkg/aqigauge"
	"github.com/spf13/cobra"
)

// ledCmd represents the led command
var ledCmd = &cobra.Command{
	Use:   "led",
	Short: "Mix colors on the RGB LED",
	Long: `Show the colors typed on stdin on the RGB LED, one per line, as
comma separated red,green,blue values from 0 to 255 or an AQI category name.`,
	Run: aqigauge.LED(),
}

func init() {
	rootCmd.AddCommand(ledCmd)
}
