/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mikesmitty/aqi-gauge/pkg/aqigauge"
	"github.com/mikesmitty/aqi-gauge/pkg/gauge"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aqi-gauge",
	Short: "Show a PurpleAir station's air quality on a servo gauge and RGB LED",
	Long: `aqi-gauge polls a PurpleAir sensor station once a minute, converts the
10 minute average PM2.5 concentration into a US EPA AQI and displays it on a
servo-driven analog gauge along with the matching AQI color on an RGB LED.

Run "aqi-gauge servo" first to find --min-duty, --max-duty and --center-duty
for your servo.`,
	Run: aqigauge.Root(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aqi-gauge.yaml)")
	rootCmd.PersistentFlags().StringP("station", "s", "", "PurpleAir station ID")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("servo-pin", "P1_7", "servo signal pin")
	rootCmd.PersistentFlags().String("red-pin", "P1_11", "LED red channel pin")
	rootCmd.PersistentFlags().String("green-pin", "P1_13", "LED green channel pin")
	rootCmd.PersistentFlags().String("blue-pin", "P1_15", "LED blue channel pin")
	// The duty cycles depend on the servo and how it is mounted on the gauge
	rootCmd.PersistentFlags().Float64("min-duty", 3.0, "servo duty cycle percentage at the gauge's highest reading")
	rootCmd.PersistentFlags().Float64("max-duty", 10.9, "servo duty cycle percentage at a zero reading")
	rootCmd.PersistentFlags().Float64("center-duty", 5.75, fmt.Sprintf("servo duty cycle percentage at an AQI of %.0f", gauge.CenterIndex))
	rootCmd.PersistentFlags().Duration("servo-settle", gauge.DefaultSettle, "time to let the servo settle before releasing it")
	rootCmd.PersistentFlags().String("mqtt-broker", "", "mqtt broker url, telemetry is disabled when empty")
	rootCmd.PersistentFlags().Int("mqtt-sample-interval", 1, "publish every nth reading to mqtt")
	rootCmd.PersistentFlags().Duration("watchdog-timeout", 10*time.Minute, "warn when the sensor feed has had no fresh readings for this long")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".aqi-gauge" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".aqi-gauge")
	}

	viper.SetEnvPrefix("aqi_gauge")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
