package main

import (
	"context"
	"fmt"

	echoapi "github.com/trezcool/lingo/apps/api/echo"
)

// issueToken prints a token standing for the identity provider's, for local development.
func (cli *commandLine) issueToken(userID, secret string) error {
	usr, err := cli.usrSvc.GetByID(context.Background(), userID)
	if err != nil {
		return err
	}

	conf := *cli.conf
	conf.SecretKey = secret
	token, err := echoapi.GenerateToken(&conf, echoapi.GetUserClaims(&conf, usr))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
