/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/mikesmitty/aqi-gauge/pkg/aqigauge"
	"github.com/spf13/cobra"
)

// servoCmd represents the servo command
var servoCmd = &cobra.Command{
	Use:   "servo",
	Short: "Find the servo's duty cycle range for the gauge",
	Long: `Move the servo to the duty cycles typed on stdin, one percentage per line.

The highest duty cycle points the needle at zero (--max-duty) and lowering it
turns the needle clockwise. Find the lowest duty cycle that reaches the top of
the scale without the servo grinding or drifting (--min-duty) and the one that
points at 150 (--center-duty).`,
	Run: aqigauge.Servo(),
}

func init() {
	rootCmd.AddCommand(servoCmd)
}
