package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-integrity-api/internal/dto"
	"github.com/noah-isme/gema-integrity-api/internal/handler"
	"github.com/noah-isme/gema-integrity-api/internal/service"
)

type mockSubmissionService struct {
	createErr   error
	listErr     error
	lastPayload dto.SubmissionCreateRequest
	lastFile    *multipart.FileHeader
}

func (m *mockSubmissionService) Create(_ context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	m.lastPayload = payload
	m.lastFile = file
	if m.createErr != nil {
		return dto.SubmissionResponse{}, m.createErr
	}
	return dto.SubmissionResponse{ID: "sub-1", AssignmentID: payload.AssignmentID, UserID: payload.UserID, Content: payload.Content}, nil
}

func (m *mockSubmissionService) ListByAssignment(_ context.Context, assignmentID string, _ service.Requester) ([]dto.SubmissionResponse, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return []dto.SubmissionResponse{{ID: "sub-1", AssignmentID: assignmentID}}, nil
}

func (m *mockSubmissionService) Get(_ context.Context, id string, requester service.Requester) (dto.SubmissionResponse, error) {
	if !requester.Owns("owner") && !requester.IsTeacher() {
		return dto.SubmissionResponse{}, service.ErrForbidden
	}
	return dto.SubmissionResponse{ID: id, UserID: "owner"}, nil
}

func submissionApp(svc service.SubmissionService, userID, role string) *fiber.App {
	return newTestApp(userID, role, handler.NewSubmissionHandler(svc, zerolog.New(io.Discard)).Register)
}

func TestSubmissionHandlerCreateFromJSON(t *testing.T) {
	svc := &mockSubmissionService{}
	body, err := json.Marshal(map[string]string{"content": "my essay"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/integrity/assignments/a1/submissions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := submissionApp(svc, "s1", "student").Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, dto.SubmissionCreateRequest{AssignmentID: "a1", UserID: "s1", Content: "my essay"}, svc.lastPayload)
	require.Nil(t, svc.lastFile)
}

func TestSubmissionHandlerCreateFromMultipart(t *testing.T) {
	svc := &mockSubmissionService{}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "essay.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("essay from a file"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/integrity/assignments/a1/submissions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := submissionApp(svc, "s1", "student").Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.NotNil(t, svc.lastFile)
	require.Equal(t, "essay.txt", svc.lastFile.Filename)
}

func TestSubmissionHandlerCreateErrors(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validationErr := validate.Struct(dto.SubmissionCreateRequest{})
	require.Error(t, validationErr)

	cases := map[string]struct {
		err    error
		status int
	}{
		"closed":       {err: service.ErrSubmissionsClosed, status: fiber.StatusConflict},
		"duplicate":    {err: service.ErrAlreadySubmitted, status: fiber.StatusConflict},
		"not enrolled": {err: service.ErrNotClassMember, status: fiber.StatusForbidden},
		"empty":        {err: service.ErrEmptySubmission, status: fiber.StatusBadRequest},
		"validation":   {err: validationErr, status: fiber.StatusBadRequest},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v2/integrity/assignments/a1/submissions", bytes.NewReader([]byte(`{"content":"x"}`)))
			req.Header.Set("Content-Type", "application/json")

			resp, err := submissionApp(&mockSubmissionService{createErr: tc.err}, "s1", "student").Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestSubmissionHandlerValidationDetails(t *testing.T) {
	validationErr := validator.New().Struct(dto.SubmissionCreateRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/v2/integrity/assignments/a1/submissions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := submissionApp(&mockSubmissionService{createErr: validationErr}, "s1", "student").Test(req)
	require.NoError(t, err)

	payload := decodeEnvelope(t, resp)
	require.Equal(t, "validation failed", payload.Message)
	require.Equal(t, "required", payload.Details["assignmentid"])
}

func TestSubmissionHandlerRoles(t *testing.T) {
	svc := &mockSubmissionService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v2/integrity/assignments/a1/submissions", bytes.NewReader([]byte(`{"content":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := submissionApp(svc, "t1", "teacher").Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = submissionApp(svc, "s1", "student").Test(httptest.NewRequest(http.MethodGet, "/api/v2/integrity/assignments/a1/submissions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = submissionApp(svc, "t1", "teacher").Test(httptest.NewRequest(http.MethodGet, "/api/v2/integrity/assignments/a1/submissions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = submissionApp(&mockSubmissionService{listErr: service.ErrForbidden}, "t9", "teacher").Test(httptest.NewRequest(http.MethodGet, "/api/v2/integrity/assignments/a1/submissions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSubmissionHandlerGet(t *testing.T) {
	svc := &mockSubmissionService{}

	resp, err := submissionApp(svc, "owner", "student").Test(httptest.NewRequest(http.MethodGet, "/api/v2/integrity/submissions/sub-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = submissionApp(svc, "someone", "student").Test(httptest.NewRequest(http.MethodGet, "/api/v2/integrity/submissions/sub-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
