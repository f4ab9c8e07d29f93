/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/mikesmitty/aqi-gauge/pkg/aqigauge"
	"github.com/spf13/cobra"
)

// onceCmd represents the once command
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Print the station's current AQI and exit",
	Long: `Fetch the station's current PM2.5 readings once and print the
concentration and AQI without touching the servo or LED.`,
	Run: aqigauge.Once(),
}

func init() {
	rootCmd.AddCommand(onceCmd)
}
