package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/analysis"
	"github.com/noah-isme/gema-integrity-api/internal/database"
	"github.com/noah-isme/gema-integrity-api/internal/events"
	"github.com/noah-isme/gema-integrity-api/internal/models"
	"github.com/noah-isme/gema-integrity-api/internal/repository"
)

type fixture struct {
	db          *gorm.DB
	users       repository.UserRepository
	classes     repository.ClassRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	matrices    repository.MatrixRepository
	teacher     models.User
	students    []models.User
	class       models.Class
	assignment  models.Assignment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	f := &fixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		classes:     repository.NewClassRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		matrices:    repository.NewMatrixRepository(db),
	}

	ctx := context.Background()
	f.teacher = models.User{Name: "Alan", Email: "alan@example.com", Role: models.RoleTeacher}
	require.NoError(t, f.users.Create(ctx, &f.teacher))

	f.class = models.Class{Title: "CS101", Code: "CS101A", CreatedBy: f.teacher.ID}
	require.NoError(t, f.classes.Create(ctx, &f.class))
	require.NoError(t, f.classes.AddMember(ctx, &models.ClassMember{ClassID: f.class.ID, UserID: f.teacher.ID}))

	for _, name := range []string{"ada", "grace", "charles"} {
		student := models.User{Name: name, Email: name + "@example.com", Role: models.RoleStudent}
		require.NoError(t, f.users.Create(ctx, &student))
		require.NoError(t, f.classes.AddMember(ctx, &models.ClassMember{ClassID: f.class.ID, UserID: student.ID}))
		f.students = append(f.students, student)
	}

	f.assignment = models.Assignment{
		Title:           "Essay",
		ClassID:         f.class.ID,
		CreatedBy:       f.teacher.ID,
		Deadline:        time.Now().Add(time.Hour),
		SubmissionsOpen: true,
	}
	require.NoError(t, f.assignments.Create(ctx, &f.assignment))

	return f
}

func (f *fixture) addSubmission(t *testing.T, user models.User, content string) models.Submission {
	t.Helper()
	submission := models.Submission{AssignmentID: f.assignment.ID, UserID: user.ID, Content: content}
	require.NoError(t, f.submissions.Create(context.Background(), &submission))
	return submission
}

func (f *fixture) teacherRequester() Requester {
	return Requester{ID: f.teacher.ID, Role: models.RoleTeacher}
}

// addTeacher creates another teacher, enrolled in the fixture class or not.
func (f *fixture) addTeacher(t *testing.T, name string, enrolled bool) Requester {
	t.Helper()
	ctx := context.Background()
	teacher := models.User{Name: name, Email: name + "@example.com", Role: models.RoleTeacher}
	require.NoError(t, f.users.Create(ctx, &teacher))
	if enrolled {
		require.NoError(t, f.classes.AddMember(ctx, &models.ClassMember{ClassID: f.class.ID, UserID: teacher.ID}))
	}
	return Requester{ID: teacher.ID, Role: models.RoleTeacher}
}

func studentRequester(user models.User) Requester {
	return Requester{ID: user.ID, Role: models.RoleStudent}
}

func testEngine() *analysis.Engine {
	return analysis.NewEngine(analysis.DefaultOptions(), analysis.RandomFunc(func(int) int { return 0 }))
}

type recordingPublisher struct {
	events []events.AnalysisCompleted
	err    error
}

func (p *recordingPublisher) PublishAnalysisCompleted(_ context.Context, event events.AnalysisCompleted) error {
	p.events = append(p.events, event)
	return p.err
}
