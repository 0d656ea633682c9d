package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/exam"
	appfs "github.com/trezcool/lingo/fs"
)

type (
	seedData struct {
		Courses []seedCourse `json:"courses"`
	}

	seedCourse struct {
		Title          string     `json:"title"`
		Description    string     `json:"description"`
		ImageURL       string     `json:"image_url"`
		EnrollmentType string     `json:"enrollment_type"`
		Units          []seedUnit `json:"units"`
		Tests          []seedTest `json:"tests"`
	}

	seedUnit struct {
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Order       int          `json:"order"`
		Lessons     []seedLesson `json:"lessons"`
	}

	seedLesson struct {
		Title      string          `json:"title"`
		Order      int             `json:"order"`
		Challenges []seedChallenge `json:"challenges"`
	}

	seedChallenge struct {
		Type      string         `json:"type"`
		Prompt    string         `json:"prompt"`
		Points    *int           `json:"points"`
		Order     int            `json:"order"`
		Questions []seedQuestion `json:"questions"`
	}

	seedQuestion struct {
		Text    string       `json:"text"`
		Order   int          `json:"order"`
		Options []seedOption `json:"options"`
	}

	seedTest struct {
		Title           string        `json:"title"`
		Description     string        `json:"description"`
		DurationMinutes int           `json:"duration_minutes"`
		Sections        []seedSection `json:"sections"`
	}

	seedSection struct {
		Title     string             `json:"title"`
		SkillType string             `json:"skill_type"`
		Order     int                `json:"order"`
		Questions []seedTestQuestion `json:"questions"`
	}

	seedTestQuestion struct {
		Type    string       `json:"type"`
		Prompt  string       `json:"prompt"`
		Points  *int         `json:"points"`
		Order   int          `json:"order"`
		Options []seedOption `json:"options"`
	}

	// seedOption carries the correctness flag, it is never serialized by the core models.
	seedOption struct {
		Text     string `json:"text"`
		Correct  bool   `json:"correct"`
		Order    int    `json:"order"`
		ImageURL string `json:"image_url"`
		AudioURL string `json:"audio_url"`
	}
)

func (sc seedCourse) course() course.Course {
	c := course.Course{
		Title:          sc.Title,
		Description:    sc.Description,
		ImageURL:       sc.ImageURL,
		EnrollmentType: sc.EnrollmentType,
	}
	for _, su := range sc.Units {
		u := course.Unit{Title: su.Title, Description: su.Description, Order: su.Order}
		for _, sl := range su.Lessons {
			l := course.Lesson{Title: sl.Title, Order: sl.Order}
			for _, sch := range sl.Challenges {
				ch := course.Challenge{Type: sch.Type, Prompt: sch.Prompt, Points: sch.Points, Order: sch.Order}
				for _, sq := range sch.Questions {
					q := course.Question{Text: sq.Text, Order: sq.Order}
					for _, so := range sq.Options {
						q.Options = append(q.Options, course.Option{
							Text:     so.Text,
							Correct:  so.Correct,
							ImageURL: so.ImageURL,
							AudioURL: so.AudioURL,
						})
					}
					ch.Questions = append(ch.Questions, q)
				}
				l.Challenges = append(l.Challenges, ch)
			}
			u.Lessons = append(u.Lessons, l)
		}
		c.Units = append(c.Units, u)
	}
	return c
}

func (st seedTest) test(courseID string) exam.Test {
	t := exam.Test{
		CourseID:        courseID,
		Title:           st.Title,
		Description:     st.Description,
		DurationMinutes: st.DurationMinutes,
	}
	for _, ss := range st.Sections {
		s := exam.Section{Title: ss.Title, SkillType: ss.SkillType, Order: ss.Order}
		for _, sq := range ss.Questions {
			q := exam.Question{Type: sq.Type, Prompt: sq.Prompt, Points: sq.Points, Order: sq.Order}
			for _, so := range sq.Options {
				q.Options = append(q.Options, exam.Option{Text: so.Text, Correct: so.Correct, Order: so.Order})
			}
			s.Questions = append(s.Questions, q)
		}
		t.Sections = append(t.Sections, s)
	}
	return t
}

func readSeed(file string) ([]byte, error) {
	if file == "" {
		return fs.ReadFile(appfs.FS, appfs.SeedFile)
	}
	return os.ReadFile(file)
}

// seed creates the courses of a seed file along with their tests. Courses whose title exists are skipped.
func (cli *commandLine) seed(file string) error {
	ctx := context.Background()

	raw, err := readSeed(file)
	if err != nil {
		return errors.Wrap(err, "reading seed")
	}
	var data seedData
	if err = json.Unmarshal(raw, &data); err != nil {
		return errors.Wrap(err, "decoding seed")
	}

	existing, err := cli.courseSvc.QueryCourses(ctx)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	titles := make(map[string]bool, len(existing))
	for _, c := range existing {
		titles[c.Title] = true
	}

	for _, sc := range data.Courses {
		if titles[sc.Title] {
			fmt.Fprintf(cli.out, "course %q exists, skipped\n", sc.Title)
			continue
		}
		c, err := cli.courseSvc.CreateCourse(ctx, sc.course())
		if err != nil {
			return errors.Wrapf(err, "creating course %q", sc.Title)
		}
		fmt.Fprintf(cli.out, "course %q created: %s\n", c.Title, c.ID)

		for _, st := range sc.Tests {
			t, err := cli.examSvc.CreateTest(ctx, st.test(c.ID))
			if err != nil {
				return errors.Wrapf(err, "creating test %q", st.Title)
			}
			fmt.Fprintf(cli.out, "test %q created: %s\n", t.Title, t.ID)
		}
	}
	return nil
}
