package cmd

import (
	"fmt"

	"github.com/eztransfer/signaling/pkg/auth"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var tokenCommand *cli.Command = &cli.Command{
	Name:  "token",
	Usage: "Prints a websocket token signed with the configured secret",
	Flags: []cli.Flag{
		secretKeyFlag,
		secretKeyFileFlag,
	},
	Action: func(c *cli.Context) error {
		secret, secretErr := auth.LoadSecret(
			afero.NewOsFs(), c.String(secretKeyFlag.Name), c.String(secretKeyFileFlag.Name),
		)
		if secretErr != nil {
			return secretErr
		}
		token, issueErr := auth.NewSigner(secret).Issue()
		if issueErr != nil {
			return issueErr
		}
		_, printErr := fmt.Fprintln(c.App.Writer, token)
		return printErr
	},
}
