package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint answers with. Details carries
// per-field validation failures and is omitted otherwise.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus answers with data and any 2xx status.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	return write(c, status, APIResponse{Success: true, Message: message, Data: data})
}

// SendError answers with an error message and no payload.
func SendError(c *fiber.Ctx, status int, message string) error {
	return write(c, status, APIResponse{Message: message})
}

// SendErrorWithDetails answers with an error message plus field level details.
func SendErrorWithDetails(c *fiber.Ctx, status int, message string, details interface{}) error {
	return write(c, status, APIResponse{Message: message, Details: details})
}

func write(c *fiber.Ctx, status int, body APIResponse) error {
	switch {
	case body.Message != "":
	case body.Success:
		body.Message = "success"
	default:
		body.Message = "error"
	}
	if status == 0 {
		status = fiber.StatusOK
		if !body.Success {
			status = fiber.StatusInternalServerError
		}
	}
	return c.Status(status).JSON(body)
}
