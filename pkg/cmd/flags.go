package cmd

import (
	"strings"
	"time"

	"github.com/eztransfer/signaling/pkg/auth"
	"github.com/urfave/cli/v2"
)

var hostFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "host",
	Value: "0.0.0.0",
	Usage: "Host the signaling server will be listening on",
}

var portFlag *cli.IntFlag = &cli.IntFlag{
	Name:    "port",
	Value:   8000,
	EnvVars: []string{"PORT"},
	Usage:   "Port the signaling server will be listening on",
}

var secretKeyFlag *cli.StringFlag = &cli.StringFlag{
	Name:    "secret-key",
	Value:   auth.DefaultSecret,
	EnvVars: []string{"SECRET_KEY"},
	Usage:   "Secret used to sign websocket tokens",
}

var secretKeyFileFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "secret-key-file",
	Value: "",
	Usage: "File holding the secret used to sign websocket tokens. Takes precedence over --secret-key",
}

var corsAllowOriginsFlag *cli.StringFlag = &cli.StringFlag{
	Name:    "cors-allow-origins",
	Value:   "",
	EnvVars: []string{"CORS_ALLOW_ORIGINS"},
	Usage:   "Comma-separated list of origins allowed to call the API, e.g. https://a.example,https://b.example",
}

var historyDBFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "history-db",
	Value: "",
	Usage: "Path to a bbolt database keeping the pairing history. If left empty, the history is kept in memory",
}

var historySizeFlag *cli.IntFlag = &cli.IntFlag{
	Name:  "history-size",
	Value: 1000,
	Usage: "Number of pairings kept by the in-memory history",
}

var wsPingIntervalFlag *cli.DurationFlag = &cli.DurationFlag{
	Name:  "ws-ping-interval",
	Value: 30 * time.Second,
	Usage: "Interval of websocket pings, connections not answering for two intervals are dropped",
}

var adminUsernameFlag *cli.StringFlag = &cli.StringFlag{
	Name:    "admin-username",
	Value:   "",
	EnvVars: []string{"ADMIN_USERNAME"},
	Usage:   "Username protecting the pairing history endpoint",
}

var adminPasswordFlag *cli.StringFlag = &cli.StringFlag{
	Name:    "admin-password",
	Value:   "",
	EnvVars: []string{"ADMIN_PASSWORD"},
	Usage:   "Password protecting the pairing history endpoint",
}

var serverFlag *cli.StringFlag = &cli.StringFlag{
	Name:  "server",
	Value: "http://127.0.0.1:8000",
	Usage: "Address of the signaling server",
}

var timeoutFlag *cli.DurationFlag = &cli.DurationFlag{
	Name:  "timeout",
	Value: 30 * time.Second,
	Usage: "How long to wait for the whole probe to complete",
}

func splitOrigins(raw string) []string {
	origins := []string{}
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
