package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	db        *sql.DB
	usrSvc    *user.Service
	courseSvc *course.Service
	examSvc   *exam.Service
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix")
	fmt.Fprintln(cli.out, "  addprofile -id ID -name NAME [-email EMAIL] [-role ROLE] - update or create a profile")
	fmt.Fprintln(cli.out, "  setactive -user ID [-active=false] - (de)activate a profile")
	fmt.Fprintln(cli.out, "  assignteacher -teacher ID -course ID - let a teacher grade the submissions of a course")
	fmt.Fprintln(cli.out, "  enroll -user ID -course ID - enroll a user once the course is paid")
	fmt.Fprintln(cli.out, "  seed [-file PATH] - load demo courses & tests")
	fmt.Fprintln(cli.out, "  issuetoken -user ID [-prompt] - sign a dev token, the secret is prompted with -prompt")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addProfileCmd := flag.NewFlagSet("addprofile", flag.ContinueOnError)
	addProfileID := addProfileCmd.String("id", "", "The subject of the profile at the identity provider.")
	addProfileName := addProfileCmd.String("name", "", "The profile's display name.")
	addProfileEmail := addProfileCmd.String("email", "", "The profile's email.")
	addProfileRole := addProfileCmd.String("role", user.RoleStudent, "One of STUDENT, TEACHER or ADMIN.")

	setActiveCmd := flag.NewFlagSet("setactive", flag.ContinueOnError)
	setActiveUser := setActiveCmd.String("user", "", "The profile id.")
	setActiveValue := setActiveCmd.Bool("active", true, "Whether the profile is active.")

	assignTeacherCmd := flag.NewFlagSet("assignteacher", flag.ContinueOnError)
	assignTeacherID := assignTeacherCmd.String("teacher", "", "The teacher's profile id.")
	assignTeacherCourse := assignTeacherCmd.String("course", "", "The course id.")

	enrollCmd := flag.NewFlagSet("enroll", flag.ContinueOnError)
	enrollUser := enrollCmd.String("user", "", "The profile id.")
	enrollCourse := enrollCmd.String("course", "", "The course id.")

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedFile := seedCmd.String("file", "", "A seed file on disk, the embedded demo content is loaded by default.")

	issueTokenCmd := flag.NewFlagSet("issuetoken", flag.ContinueOnError)
	issueTokenUser := issueTokenCmd.String("user", "", "The profile id, used as the token subject.")
	issueTokenPrompt := issueTokenCmd.Bool("prompt", false, "Prompt for the signing secret instead of using the configured one.")

	for _, fs := range []*flag.FlagSet{addProfileCmd, setActiveCmd, assignTeacherCmd, enrollCmd, seedCmd, issueTokenCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addprofile":
		if err := addProfileCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addProfileID == "" || *addProfileName == "" {
			addProfileCmd.Usage()
			return errHelp
		}
		return cli.addProfile(*addProfileID, *addProfileName, *addProfileEmail, *addProfileRole)
	case "setactive":
		if err := setActiveCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *setActiveUser == "" {
			setActiveCmd.Usage()
			return errHelp
		}
		return cli.setActive(*setActiveUser, *setActiveValue)
	case "assignteacher":
		if err := assignTeacherCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *assignTeacherID == "" || *assignTeacherCourse == "" {
			assignTeacherCmd.Usage()
			return errHelp
		}
		return cli.assignTeacher(*assignTeacherID, *assignTeacherCourse)
	case "enroll":
		if err := enrollCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *enrollUser == "" || *enrollCourse == "" {
			enrollCmd.Usage()
			return errHelp
		}
		return cli.enroll(*enrollUser, *enrollCourse)
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.seed(*seedFile)
	case "issuetoken":
		if err := issueTokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *issueTokenUser == "" {
			issueTokenCmd.Usage()
			return errHelp
		}
		secret := cli.conf.SecretKey
		if *issueTokenPrompt {
			fmt.Fprint(cli.out, "Enter secret:")
			pwd, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if len(pwd) == 0 {
				issueTokenCmd.Usage()
				return errHelp
			}
			secret = string(pwd)
		}
		return cli.issueToken(*issueTokenUser, secret)
	default:
		cli.printUsage()
		return errHelp
	}
}
