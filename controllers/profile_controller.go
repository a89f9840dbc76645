// controllers/profile_controller.go
package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/alumni_backend/middleware"
	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/services"
	"github.com/HSouheill/alumni_backend/utils"
)

const socialLinksPrefix = "socialLinks."

// ProfileController applies credentialed profile updates.
type ProfileController struct {
	profiles *services.ProfileService
}

func NewProfileController(profiles *services.ProfileService) *ProfileController {
	return &ProfileController{profiles: profiles}
}

// UpdateProfile handles PUT /api/profile. The body is either JSON
// ({identifier, channel, fields}) or multipart with an optional profileImage file.
func (pc *ProfileController) UpdateProfile(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	credential := middleware.GetCredential(c)

	var (
		req   models.UpdateProfileRequest
		image *services.ImageUpload
		err   error
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		req, image, err = readMultipartUpdate(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
	} else if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Identifier must be a valid email and channel must be email or phone")
	}

	resp, err := pc.profiles.ApplyUpdate(ctx, credential, req, image)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Profile updated successfully",
		Data:    resp,
	})
}

// readMultipartUpdate maps form values onto fields. Keys of the form
// socialLinks.<name> are gathered into the socialLinks map.
func readMultipartUpdate(c echo.Context) (models.UpdateProfileRequest, *services.ImageUpload, error) {
	req := models.UpdateProfileRequest{Fields: map[string]interface{}{}}

	form, err := c.MultipartForm()
	if err != nil {
		return req, nil, errors.New("invalid multipart form")
	}

	links := map[string]interface{}{}
	for key, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		switch {
		case key == "identifier":
			req.Identifier = values[0]
		case key == "channel":
			req.Channel = models.Channel(values[0])
		case strings.HasPrefix(key, socialLinksPrefix):
			links[strings.TrimPrefix(key, socialLinksPrefix)] = values[0]
		default:
			req.Fields[key] = values[0]
		}
	}
	if len(links) > 0 {
		req.Fields["socialLinks"] = links
	}

	files := form.File["profileImage"]
	if len(files) == 0 {
		return req, nil, nil
	}
	image, err := readImage(files[0])
	if err != nil {
		return req, nil, err
	}
	return req, image, nil
}

func readImage(fh *multipart.FileHeader) (*services.ImageUpload, error) {
	if err := utils.ValidateImageFile(fh.Filename, fh.Size); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, errors.New("failed to read uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, utils.MaxImageSize+1))
	if err != nil {
		return nil, errors.New("failed to read uploaded file")
	}
	return &services.ImageUpload{Filename: fh.Filename, Data: data}, nil
}
