// controllers/user_controller.go
package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/services"
)

// UserController contains directory handlers
type UserController struct {
	directory *services.DirectoryService
}

// NewUserController creates a new user controller
func NewUserController(directory *services.DirectoryService) *UserController {
	return &UserController{directory: directory}
}

// Register handles POST /api/users/register, as JSON or multipart with an
// optional profileImage file.
func (uc *UserController) Register(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Email, password (min 8 chars), name and role are required")
	}

	var image *services.ImageUpload
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if fh, err := c.FormFile("profileImage"); err == nil {
			image, err = readImage(fh)
			if err != nil {
				return badRequest(c, err.Error())
			}
		}
	}

	user, err := uc.directory.Register(ctx, req, image)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Registration submitted, pending approval",
		Data:    user,
	})
}

// GetUser handles GET /api/users/:email
func (uc *UserController) GetUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.directory.Get(ctx, emailParam(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "User retrieved successfully",
		Data:    user,
	})
}

// ListUsers handles GET /api/users?role=&branch=&batch=&page=&limit=
func (uc *UserController) ListUsers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	filter := models.UserFilter{
		Role:   c.QueryParam("role"),
		Branch: c.QueryParam("branch"),
	}
	for name, dst := range map[string]*int{"batch": &filter.Batch, "page": &filter.Page, "limit": &filter.Limit} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest(c, "Invalid "+name+" parameter")
		}
		*dst = n
	}

	users, err := uc.directory.List(ctx, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Users retrieved successfully",
		Data:    users,
	})
}

// ApproveUser handles PUT /api/admin/users/:email/approve
func (uc *UserController) ApproveUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.directory.Approve(ctx, emailParam(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "User approved",
		Data:    user,
	})
}

func emailParam(c echo.Context) string {
	raw := c.Param("email")
	if email, err := url.PathUnescape(raw); err == nil {
		return email
	}
	return raw
}
