package dto

// SeedResponse reports what the demo seeder created.
type SeedResponse struct {
	ClassID      string   `json:"class_id"`
	AssignmentID string   `json:"assignment_id"`
	TeacherID    string   `json:"teacher_id"`
	StudentIDs   []string `json:"student_ids"`
	Submissions  int      `json:"submissions"`
}
