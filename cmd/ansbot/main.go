package main

import (
	"log"

	"github.com/ambns/ansbot/ans/app"
	appconfig "github.com/ambns/ansbot/ans/config"
	corecmd "github.com/ambns/ansbot/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return appconfig.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("ansbot: %v", err)
	}
}
