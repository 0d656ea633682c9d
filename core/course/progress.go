package course

// lessonProgress derives the completion of lesson from the set of completed challenge ids.
// A lesson without challenges is never completed.
func lessonProgress(unitID string, lesson Lesson, completed map[string]bool) LessonProgress {
	lp := LessonProgress{
		LessonID:        lesson.ID,
		UnitID:          unitID,
		Title:           lesson.Title,
		TotalChallenges: len(lesson.Challenges),
	}
	for _, ch := range lesson.Challenges {
		if completed[ch.ID] {
			lp.CompletedChallenges++
		}
	}
	lp.Completed = lp.TotalChallenges > 0 && lp.CompletedChallenges == lp.TotalChallenges
	return lp
}

// computeProgress rolls the challenge progress of a user up to the course.
func computeProgress(c Course, userID string, cps []ChallengeProgress) Progress {
	completed := make(map[string]bool, len(cps))
	for _, cp := range cps {
		if cp.UserID == userID && cp.Completed {
			completed[cp.ChallengeID] = true
		}
	}

	p := Progress{CourseID: c.ID, UserID: userID, Lessons: make([]LessonProgress, 0)}
	for _, u := range c.Units {
		for _, l := range u.Lessons {
			lp := lessonProgress(u.ID, l, completed)
			p.Lessons = append(p.Lessons, lp)
			p.TotalLessons++
			if lp.Completed {
				p.CompletedLessons++
			}
		}
	}
	if p.TotalLessons > 0 {
		p.Percentage = p.CompletedLessons * 100 / p.TotalLessons
	}
	return p
}

func challengeIDs(c Course) []string {
	var ids []string
	for _, l := range c.Lessons() {
		ids = append(ids, l.ChallengeIDs()...)
	}
	return ids
}
