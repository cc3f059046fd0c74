////////////////////////////////////////////////////////////////////////////
// Porgram: CommandLineCV
// Purpose: Go commandline via cobra & viper demo
// Authors: Tong Sun (c) 2015, All rights reserved
// based on https://github.com/chop-dbhi/origins-dispatch/blob/master/main.go
////////////////////////////////////////////////////////////////////////////

////////////////////////////////////////////////////////////////////////////
// Program start

package main

import (
	"fmt"
	"time"

	"github.com/AGPFMiner/bmctl/miner"
	"github.com/AGPFMiner/bmctl/types"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

////////////////////////////////////////////////////////////////////////////
// Constant and data type/structure definitions

const version = "0.1.0"

// The main command describes the service and defaults to printing the
// help message.
var mainCmd = &cobra.Command{
	Use:   "bmctl",
	Short: "Chain controller for BM1387 hashboards",
	Long:  `Chain controller for BM1387 hashboards`,
	Run: func(cmd *cobra.Command, args []string) {
		mine()
	},
}

// The version command prints this service.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version.",
	Long:  "The version of the bmctl service.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

var mainminer = &miner.Miner{}

// Go special automatically executed init function
func init() {
	time.Sleep(1000 * time.Millisecond)

	mainCmd.AddCommand(versionCmd)

	viper.SetDefault("driver", "bm1387")
	viper.SetDefault("polldelay", "10")
	viper.SetDefault("noncetimeout", "30")
	viper.SetDefault("api-service", "true")
	viper.SetDefault("api-listen", "0.0.0.0:1234")
	viper.SetDefault("debug", "error")
	viper.SetDefault("resetio", []int{13, 12, 19, 18})
	viper.SetDefault("plugio", []int{5, 4, 3, 2})

	// Viper supports reading from yaml, toml and/or json files. Viper can
	// search multiple paths. Paths will be searched in the order they are
	// provided. Searches stopped once Config File found.

	viper.SetConfigName("bmctl")            // name of config file (without extension)
	viper.AddConfigPath("/opt/scripta/etc") // path to look for the config file in
	viper.AddConfigPath(".")                // more path to look for the config files

	err := viper.ReadInConfig()
	if err != nil {
		println("No config file found. Using built-in defaults.")
	}

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		var chains []types.ChainConfig
		viper.UnmarshalKey("chains", &chains, viper.DecodeHook(types.DecodeFrequencyHook()))
		mainminer.Chains = chains

		mainminer.Driver = viper.GetString("driver")
		mainminer.PollDelay = viper.GetInt64("polldelay")
		mainminer.NonceTimeout = viper.GetInt64("noncetimeout")

		mainminer.WebEnable = viper.GetBool("api-service")
		mainminer.WebListen = viper.GetString("api-listen")

		mainminer.LogLevel = viper.GetString("debug")
		mainminer.Reload()
	})

}

////////////////////////////////////////////////////////////////////////////
// Main

func main() {
	mainCmd.Execute()
}

////////////////////////////////////////////////////////////////////////////
// Function definitions
func mine() {
	var chains []types.ChainConfig
	viper.UnmarshalKey("chains", &chains, viper.DecodeHook(types.DecodeFrequencyHook()))
	mainminer.Chains = chains

	mainminer.Driver = viper.GetString("driver")
	mainminer.PollDelay = viper.GetInt64("polldelay")
	mainminer.NonceTimeout = viper.GetInt64("noncetimeout")

	mainminer.WebEnable = viper.GetBool("api-service")
	mainminer.WebListen = viper.GetString("api-listen")

	mainminer.LogLevel = viper.GetString("debug")
	mainminer.MinerMain()
}
