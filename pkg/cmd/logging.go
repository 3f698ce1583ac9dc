package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var logFormatFlag *cli.StringFlag = &cli.StringFlag{
	Name:    "log-format",
	Value:   "text",
	EnvVars: []string{"LOG_FORMAT"},
	Usage:   "Format of the log output, `text` or `json`",
}

func setLogLevel(c *cli.Context) error {
	formatter, formatterErr := logFormatter(c.String(logFormatFlag.Name))
	if formatterErr != nil {
		return formatterErr
	}
	logrus.SetFormatter(formatter)
	if c.IsSet("trace") {
		logrus.Warn("Log level set to trace")
		logrus.SetLevel(logrus.TraceLevel)
	} else if c.IsSet("debug") {
		logrus.Warn("Log level set to debug")
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.Info("Log level set to info")
		logrus.SetLevel(logrus.InfoLevel)
	}
	return nil
}

func logFormatter(format string) (logrus.Formatter, error) {
	switch format {
	case "text":
		return &logrus.TextFormatter{FullTimestamp: true}, nil
	case "json":
		return &logrus.JSONFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown log format %q, expected text or json", format)
}
