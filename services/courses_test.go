package services

import (
	"errors"
	"testing"

	"github.com/cppla/eduvolve/models"
)

func TestCreateCourseInstructorOnly(t *testing.T) {
	f := newFixture(t)
	student := f.user("ada", models.RoleStudent)
	admin := f.user("root", models.RoleAdmin)
	in := CourseInput{Title: "Go", Description: "Intro"}

	for _, a := range []Actor{student, admin} {
		if _, err := f.svc.CreateCourse(f.ctx, a, in); !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: want ErrForbidden got %v", a.Role, err)
		}
	}
	instructor := f.user("grace", models.RoleInstructor)
	c, err := f.svc.CreateCourse(f.ctx, instructor, in)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if c.Level != models.LevelBeginner || c.DurationWeeks != 4 || c.IsPublished {
		t.Fatalf("course defaults: %+v", c)
	}
	if _, err := f.svc.CreateCourse(f.ctx, instructor, CourseInput{Title: "Go", Description: "x", Level: "EXPERT"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad level: want ErrValidation got %v", err)
	}

	// admins may edit any course
	if _, err := f.svc.UpdateCourse(f.ctx, admin, c.ID, CourseInput{Title: "Go, revised", Description: "Intro"}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	other := f.user("linus", models.RoleInstructor)
	if err := f.svc.DeleteCourse(f.ctx, other, c.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign delete: want ErrForbidden got %v", err)
	}
	if err := f.svc.DeleteCourse(f.ctx, instructor, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := f.count(&models.Course{}, "id = ?", c.ID); n != 0 {
		t.Fatalf("course still present")
	}
}

func TestLessonOrdering(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	c, lessons := f.course(instructor, 2)
	if lessons[0].Order != 1 || lessons[1].Order != 2 {
		t.Fatalf("append order: %d, %d", lessons[0].Order, lessons[1].Order)
	}

	taken := 2
	if _, err := f.svc.CreateLesson(f.ctx, instructor, c.ID, LessonInput{Title: "Dup", Order: &taken}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate order: want ErrConflict got %v", err)
	}
	if _, err := f.svc.UpdateLesson(f.ctx, instructor, lessons[0].ID, LessonInput{Title: "Moved", Order: &taken}); !errors.Is(err, ErrConflict) {
		t.Fatalf("update into taken order: want ErrConflict got %v", err)
	}

	ten := 10
	l, err := f.svc.CreateLesson(f.ctx, instructor, c.ID, LessonInput{Title: "Later", Order: &ten})
	if err != nil {
		t.Fatalf("explicit order: %v", err)
	}
	next, err := f.svc.CreateLesson(f.ctx, instructor, c.ID, LessonInput{Title: "After"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if l.Order != 10 || next.Order != 11 {
		t.Fatalf("orders: %d, %d", l.Order, next.Order)
	}

	other := f.user("linus", models.RoleInstructor)
	if _, err := f.svc.CreateLesson(f.ctx, other, c.ID, LessonInput{Title: "Nope"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign lesson: want ErrForbidden got %v", err)
	}
}

func TestLessonVideoURLIsNormalized(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	c, _ := f.course(instructor, 0)

	l, err := f.svc.CreateLesson(f.ctx, instructor, c.ID, LessonInput{
		Title:    "Video",
		VideoURL: "https://youtu.be/dQw4w9WgXcQ",
	})
	if err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	want := "https://www.youtube.com/embed/dQw4w9WgXcQ"
	if l.VideoURL != want {
		t.Fatalf("video url: want=%s got=%s", want, l.VideoURL)
	}

	l, err = f.svc.UpdateLesson(f.ctx, instructor, l.ID, LessonInput{
		Title:    "Video",
		VideoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42",
	})
	if err != nil {
		t.Fatalf("update lesson: %v", err)
	}
	if l.VideoURL != want {
		t.Fatalf("updated video url: want=%s got=%s", want, l.VideoURL)
	}
}

func TestCourseVisibility(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	student := f.user("ada", models.RoleStudent)
	public, _ := f.course(instructor, 1)
	if _, err := f.svc.CreateLesson(f.ctx, instructor, public.ID, LessonInput{Title: "Draft"}); err != nil {
		t.Fatalf("draft lesson: %v", err)
	}
	draft, err := f.svc.CreateCourse(f.ctx, instructor, CourseInput{Title: "Secret Rust", Description: "wip"})
	if err != nil {
		t.Fatalf("draft course: %v", err)
	}

	if _, err := f.svc.GetCourse(f.ctx, student, draft.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unpublished for student: want ErrNotFound got %v", err)
	}
	if _, err := f.svc.GetCourse(f.ctx, instructor, draft.ID); err != nil {
		t.Fatalf("unpublished for owner: %v", err)
	}

	detail, err := f.svc.GetCourse(f.ctx, student, public.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if len(detail.Course.Lessons) != 1 || detail.TotalLessons != 2 || detail.CanManage || detail.Enrollment != nil {
		t.Fatalf("student detail: lessons=%d total=%d manage=%v", len(detail.Course.Lessons), detail.TotalLessons, detail.CanManage)
	}
	f.enroll(student, public.ID)
	detail, err = f.svc.GetCourse(f.ctx, student, public.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if detail.Enrollment == nil || detail.Enrolled != 1 {
		t.Fatalf("enrolled detail: %+v", detail)
	}

	owner, err := f.svc.GetCourse(f.ctx, instructor, public.ID)
	if err != nil {
		t.Fatalf("owner detail: %v", err)
	}
	if len(owner.Course.Lessons) != 2 || !owner.CanManage {
		t.Fatalf("owner detail: lessons=%d manage=%v", len(owner.Course.Lessons), owner.CanManage)
	}
}

func TestListCourses(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	f.course(instructor, 0)
	if _, err := f.svc.CreateCourse(f.ctx, instructor, CourseInput{Title: "Advanced Concurrency", Description: "Channels", Level: models.LevelAdvanced, IsPublished: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.CreateCourse(f.ctx, instructor, CourseInput{Title: "Hidden Go", Description: "draft"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, total, err := f.svc.ListCourses(f.ctx, CourseFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("published only: total=%d", total)
	}
	found, total, err := f.svc.ListCourses(f.ctx, CourseFilter{Search: "CHANNELS"})
	if err != nil || total != 1 || found[0].Title != "Advanced Concurrency" {
		t.Fatalf("search: total=%d err=%v", total, err)
	}
	_, total, err = f.svc.ListCourses(f.ctx, CourseFilter{Level: "advanced"})
	if err != nil || total != 1 {
		t.Fatalf("level filter: total=%d err=%v", total, err)
	}

	mine, err := f.svc.InstructorCourses(f.ctx, instructor)
	if err != nil || len(mine) != 3 {
		t.Fatalf("instructor courses: %d %v", len(mine), err)
	}
}
