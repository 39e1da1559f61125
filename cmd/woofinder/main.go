// Command woofinder runs the WooFinder lost and found pets bot.
package main

import (
	"log"

	"github.com/m3rciful/woofinder/bot/app"
	corecmd "github.com/m3rciful/woofinder/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := app.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
