package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) assignTeacher(teacherID, courseID string) error {
	if err := cli.courseSvc.AssignTeacher(context.Background(), teacherID, courseID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "teacher %s assigned to course %s\n", teacherID, courseID)
	return nil
}

// enroll enrolls a user in a course of any enrollment type, ie: once its payment is confirmed.
func (cli *commandLine) enroll(userID, courseID string) error {
	e, err := cli.courseSvc.EnrollPaid(context.Background(), userID, courseID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "enrollment %s created\n", e.ID)
	return nil
}
