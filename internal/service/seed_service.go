package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-integrity-api/internal/dto"
	"github.com/noah-isme/gema-integrity-api/internal/models"
	"github.com/noah-isme/gema-integrity-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
	// ErrAlreadySeeded indicates the demo data exists already.
	ErrAlreadySeeded = errors.New("demo data has already been seeded")
)

const seedEmailDomain = "eduverify.com"

var seedStudentNames = []string{
	"Ada Lovelace",
	"Grace Hopper",
	"Charles Babbage",
	"John von Neumann",
	"Margaret Hamilton",
	"Tim Berners-Lee",
	"Vint Cerf",
	"Bob Kahn",
	"Radia Perlman",
	"Donald Knuth",
}

// Essays for the closed demo assignment. The first two mention generative
// tools, the fifth student copies the fourth.
var seedEssays = []string{
	"This essay was prepared with assistance from a large language model such as Gemini to ensure accuracy and clarity. The internet emerged from ARPANET, a research network funded by the United States Department of Defense, and gradually evolved into a global infrastructure connecting billions of devices.",
	"Written with help from GPT for structure. Packet switching, standardized protocols and institutional collaboration transformed isolated computing facilities into an interconnected communications ecosystem that underpins contemporary commerce, scholarship and governance.",
	"The internet started in the sixties when people wanted computers to talk. At first only a few universities were on it and it was slow. Later email got popular and then the web came and now everyone uses it for pretty much everything.",
	"I think the most important part of internet history is TCP/IP. Vint Cerf and Bob Kahn made rules so different networks could join together. In 1983 ARPANET switched to it and that day is kind of the birthday of the internet we know.",
	"I think the most important part of internet history is TCP/IP. Vint Cerf and Bob Kahn made rules so different networks could join together. In 1983 ARPANET switched to it and that day is kind of the birthday of the internet we know. A little extra text to avoid perfect match.",
	"Tim Berners-Lee worked at CERN and wanted scientists to share documents easily. He wrote the first web browser and server in 1990. The web is not the same thing as the internet, it runs on top of it using HTTP and links.",
	"Before the web there were bulletin boards and newsgroups. My dad says he used a modem that made funny noises. Dial up was slow but people still chatted and traded files. Broadband and wifi made it fast enough for video.",
	"Search engines changed how we find things online. Early ones listed pages by hand. Then Google ranked pages by how many links pointed at them, which worked much better, and advertising paid for the whole thing.",
	"Mobile phones put the internet in our pockets. The iPhone came out in 2007 and apps became a huge deal. Now more people go online with phones than with computers, especially in countries that skipped landlines.",
	"Security was not a big concern at the beginning because everyone on the network trusted each other. Worms and viruses showed that was a mistake. Today encryption like HTTPS protects passwords and payments.",
}

// SeedService creates demo data for local development.
type SeedService interface {
	SeedDemo(ctx context.Context, token string) (dto.SeedResponse, error)
}

type seedService struct {
	users       repository.UserRepository
	classes     repository.ClassRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	enabled     bool
	token       string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, classes repository.ClassRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		users:       users,
		classes:     classes,
		assignments: assignments,
		submissions: submissions,
		enabled:     enabled,
		token:       token,
		logger:      logger.With().Str("component", "seed_service").Logger(),
		now:         time.Now,
	}
}

// SeedDemo creates a teacher, ten enrolled students, an open assignment and a
// closed one that already holds a submission from every student.
func (s *seedService) SeedDemo(ctx context.Context, token string) (dto.SeedResponse, error) {
	if !s.enabled {
		return dto.SeedResponse{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.SeedResponse{}, ErrSeedUnauthorized
	}

	teacher := models.User{Name: "Dr. Alan Turing", Email: "teacher@" + seedEmailDomain, Role: models.RoleTeacher}
	if err := s.users.Create(ctx, &teacher); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SeedResponse{}, ErrAlreadySeeded
		}
		return dto.SeedResponse{}, fmt.Errorf("create teacher: %w", err)
	}

	class := models.Class{
		Title:     "Introduction to Computer Science",
		Code:      strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6]),
		CreatedBy: teacher.ID,
		Semester:  "Fall 2024",
	}
	if err := s.classes.Create(ctx, &class); err != nil {
		return dto.SeedResponse{}, fmt.Errorf("create class: %w", err)
	}
	if err := s.classes.AddMember(ctx, &models.ClassMember{ClassID: class.ID, UserID: teacher.ID}); err != nil {
		return dto.SeedResponse{}, fmt.Errorf("enroll teacher: %w", err)
	}

	response := dto.SeedResponse{ClassID: class.ID, TeacherID: teacher.ID}
	students := make([]models.User, 0, len(seedStudentNames))
	for _, name := range seedStudentNames {
		student := models.User{Name: name, Email: seedEmail(name), Role: models.RoleStudent}
		if err := s.users.Create(ctx, &student); err != nil {
			return dto.SeedResponse{}, fmt.Errorf("create student %s: %w", name, err)
		}
		if err := s.classes.AddMember(ctx, &models.ClassMember{ClassID: class.ID, UserID: student.ID}); err != nil {
			return dto.SeedResponse{}, fmt.Errorf("enroll student %s: %w", name, err)
		}
		students = append(students, student)
		response.StudentIDs = append(response.StudentIDs, student.ID)
	}

	now := s.now().UTC()
	open := models.Assignment{
		Title:           "The Impact of AI on Society",
		ClassID:         class.ID,
		CreatedBy:       teacher.ID,
		Deadline:        now.Add(10 * 24 * time.Hour),
		SubmissionsOpen: true,
	}
	if err := s.assignments.Create(ctx, &open); err != nil {
		return dto.SeedResponse{}, fmt.Errorf("create assignment: %w", err)
	}

	closed := models.Assignment{
		Title:     "History of the Internet",
		ClassID:   class.ID,
		CreatedBy: teacher.ID,
		Deadline:  now.Add(-2 * 24 * time.Hour),
	}
	if err := s.assignments.Create(ctx, &closed); err != nil {
		return dto.SeedResponse{}, fmt.Errorf("create assignment: %w", err)
	}
	response.AssignmentID = closed.ID

	// Inserted directly; the closed assignment would reject them otherwise.
	submittedAt := closed.Deadline.Add(-24 * time.Hour)
	for i, student := range students {
		submission := models.Submission{
			AssignmentID: closed.ID,
			UserID:       student.ID,
			FileURL:      strings.ReplaceAll(student.Name, " ", "_") + "_submission.txt",
			Content:      seedEssays[i%len(seedEssays)],
			CreatedAt:    submittedAt.Add(time.Duration(i) * time.Minute),
		}
		if err := s.submissions.Create(ctx, &submission); err != nil {
			return dto.SeedResponse{}, fmt.Errorf("create submission for %s: %w", student.Name, err)
		}
		response.Submissions++
	}

	s.logger.Info().
		Str("class_id", class.ID).
		Str("assignment_id", closed.ID).
		Int("students", len(students)).
		Msg("demo data seeded")

	return response, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

func seedEmail(name string) string {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return local + "@" + seedEmailDomain
}
