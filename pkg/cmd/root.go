package cmd

import (
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var projectVersion = "dev"

// Run starts the signaling relay CLI
func Run() {
	app := &cli.App{
		Name:                 "eztransfer-signaling",
		Usage:                "Signaling relay, that pairs two WebRTC peers with a short code and relays their handshake",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			serveCommand,
			tokenCommand,
			probeCommand,
		},
		Version: projectVersion,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Be more verbose when logging stuff",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "Be even more verbose when logging stuff",
			},
			logFormatFlag,
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Start prometheus metrics server",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "metrics-host",
				Value: "0.0.0.0",
			},
			&cli.IntFlag{
				Name:  "metrics-port",
				Value: 8090,
			},
		},

		Before: setLogLevel,
		ExitErrHandler: func(context *cli.Context, theErr error) {
			if logrus.GetLevel() != logrus.DebugLevel {
				logrus.Error(
					"Command failed. For verbose output, please use `eztransfer-signaling --debug <your-command>`",
				)
			}
		},
	}

	if runErr := app.Run(os.Args); runErr != nil {
		log.Fatal(runErr)
	}
}
