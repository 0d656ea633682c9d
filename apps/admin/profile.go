package main

import (
	"context"
	"fmt"

	"github.com/trezcool/lingo/core/user"
)

// addProfile updates or creates a profile, it is the only way to grant the TEACHER & ADMIN roles.
func (cli *commandLine) addProfile(id, name, email, role string) error {
	usr, err := cli.usrSvc.UpdateOrCreate(context.Background(), user.NewProfile{
		ID:    id,
		Name:  name,
		Email: email,
		Role:  role,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "profile %s saved with role %s\n", usr.ID, usr.Role)
	return nil
}

func (cli *commandLine) setActive(id string, active bool) error {
	usr, err := cli.usrSvc.SetActive(context.Background(), id, active)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "profile %s active: %t\n", usr.ID, usr.IsActive)
	return nil
}
