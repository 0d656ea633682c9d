/*
	Project: Lingo - language courses & IELTS-style mock tests
	Target: self-paced learners, graded by their course teachers
*/
package lingo

/*
TODO: payment webhook calling course.Service.EnrollPaid (PAID courses are only enrolled through `admin enroll` for now)
TODO: cancel enrollments: course access checks Enrollment.IsActive but nothing sets EnrollmentCancelled yet
TODO: upload endpoint for recordings, SubmitResponse trusts the audio_url it is given

Grading:
	- teachers grade the courses they are assigned to (`admin assignteacher`)
	- a re-grade mails "Your grade has been updated"
	- TODO: bulk grading from a CSV export of the queue ???

FE: student dashboard (progress, attempts history) & teacher dashboard (grading queue)
*/
