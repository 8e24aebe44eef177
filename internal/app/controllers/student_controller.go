// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/app/models/dto"
	"github.com/AntonVanke/xuexinwang/internal/app/services"
	"github.com/AntonVanke/xuexinwang/internal/middleware"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
)

// StudentController handles public submission and lookup
type StudentController struct {
	submissions *services.SubmissionService
	students    *services.StudentService
	credentials *services.CredentialService
	uploads     *services.UploadService
	baseURL     string
	logger      zerolog.Logger
}

// NewStudentController creates a new StudentController
func NewStudentController(
	submissions *services.SubmissionService,
	students *services.StudentService,
	credentials *services.CredentialService,
	uploads *services.UploadService,
	baseURL string,
	logger zerolog.Logger,
) *StudentController {
	return &StudentController{
		submissions: submissions,
		students:    students,
		credentials: credentials,
		uploads:     uploads,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// Submit handles a public record submission
// @Summary Submit a student record
// @Description Creates a record, updates it when force_update is set, or reports the record already using the identity number
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Param identity_number formData string true "Identity number"
// @Param force_update formData bool false "Overwrite an existing record"
// @Param name formData string true "Name"
// @Param admission_photo formData file false "Admission photo"
// @Success 200 {object} dto.APIResponse{data=dto.SubmitResponse} "Record created or updated"
// @Failure 400 {object} dto.ErrorResponse "Validation failed or identity number rejected"
// @Failure 409 {object} dto.APIResponse{data=dto.ConflictResponse} "Identity number already registered"
// @Failure 413 {object} dto.ErrorResponse "Photo too large"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /submit [post]
func (c *StudentController) Submit(ctx *gin.Context) {
	var req dto.SubmitStudentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		c.logger.Debug().Err(err).Msg("Invalid submission payload")
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(middleware.TranslateBindError(err), nil))
		return
	}

	photo, photoName, err := readUpload(req.AdmissionPhoto, c.uploads.MaxSize())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	outcome, err := c.submissions.Resolve(ctx.Request.Context(), services.SubmitInput{
		IdentityNumber: req.IdentityNumber,
		ForceUpdate:    req.ForceUpdate,
		Fields:         req.StudentFieldsForm.ToModel(),
		Photo:          photo,
		PhotoName:      photoName,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	switch outcome.Kind {
	case models.OutcomeRejected:
		middleware.HandleAPIError(ctx, apperrors.ErrInvalidIdentity)
	case models.OutcomeConflict:
		detail := dto.NewErrorDetail(dto.ErrorCodeConflict, "该身份证号码已登记").WithField("identityNumber")
		ctx.JSON(http.StatusConflict, dto.NewFailureResponse(detail, dto.ConflictResponse{
			ExistingQueryID: outcome.QueryID,
			ExistingName:    outcome.ExistingName,
			URL:             recordURL(ctx, c.baseURL, outcome.QueryID),
		}))
	default:
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SubmitResponse{
			Outcome: string(outcome.Kind),
			QueryID: outcome.QueryID,
			URL:     recordURL(ctx, c.baseURL, outcome.QueryID),
		}, "Submission saved"))
	}
}

// GetStudent returns a record by its query id
// @Summary Look up a student record
// @Description Returns the record with the identity number masked
// @Tags students
// @Produce json
// @Param queryId path string true "Query ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse} "Record found"
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /student/{queryId} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	student, err := c.students.GetByQueryID(ctx.Request.Context(), ctx.Param("queryId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromStudent(student, true), ""))
}

// LegacyRedirect sends old /d/ links to the lookup route
// @Summary Legacy lookup link
// @Tags students
// @Param queryId path string true "Query ID"
// @Success 301 "Redirect to /student/{queryId}"
// @Router /d/{queryId} [get]
func (c *StudentController) LegacyRedirect(ctx *gin.Context) {
	ctx.Redirect(http.StatusMovedPermanently, "/student/"+ctx.Param("queryId"))
}

// GetCredential renders the collection-code image
// @Summary Collection-code image
// @Description Returns the credential image as a PNG data URL
// @Tags students
// @Produce json
// @Param queryId path string true "Query ID"
// @Success 200 {object} dto.APIResponse{data=dto.CredentialResponse} "Image generated"
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Failure 500 {object} dto.ErrorResponse "Template unavailable"
// @Router /student/{queryId}/credential [get]
func (c *StudentController) GetCredential(ctx *gin.Context) {
	image, err := c.credentials.Generate(ctx.Request.Context(), ctx.Param("queryId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CredentialResponse{Image: image}, ""))
}
