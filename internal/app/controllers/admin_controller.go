package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/app/models/dto"
	"github.com/AntonVanke/xuexinwang/internal/app/services"
	"github.com/AntonVanke/xuexinwang/internal/middleware"
	"github.com/AntonVanke/xuexinwang/internal/pkg/helpers"
)

// AdminController handles the admin console API
type AdminController struct {
	admins      *services.AdminService
	students    *services.StudentService
	credentials *services.CredentialService
	uploads     *services.UploadService
	auth        *middleware.AuthMiddleware
	logger      zerolog.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(
	admins *services.AdminService,
	students *services.StudentService,
	credentials *services.CredentialService,
	uploads *services.UploadService,
	auth *middleware.AuthMiddleware,
	logger zerolog.Logger,
) *AdminController {
	return &AdminController{
		admins:      admins,
		students:    students,
		credentials: credentials,
		uploads:     uploads,
		auth:        auth,
		logger:      logger,
	}
}

// Status reports whether setup is pending and whether the caller is signed in
// @Summary Admin console status
// @Tags admin
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.AdminStatusResponse}
// @Router /admin/status [get]
func (c *AdminController) Status(ctx *gin.Context) {
	required, err := c.admins.SetupRequired(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.AdminStatusResponse{SetupRequired: required}
	if session, ok := c.auth.CurrentSession(ctx); ok {
		resp.Authenticated = true
		resp.Username = session.Username
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// Setup creates the admin account
// @Summary Create the admin account
// @Description Only allowed while no admin account exists
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.AdminCredentialsRequest true "Credentials"
// @Success 201 {object} dto.APIResponse{data=dto.AdminSessionResponse}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 403 {object} dto.ErrorResponse "Setup already completed"
// @Router /admin/setup [post]
func (c *AdminController) Setup(ctx *gin.Context) {
	var req dto.AdminCredentialsRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(middleware.TranslateBindError(err), nil))
		return
	}

	issued, err := c.admins.Setup(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if err := c.storeSession(ctx, issued); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(sessionResponse(issued), "Admin account created"))
}

// Login signs the admin in
// @Summary Admin login
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.AdminCredentialsRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AdminSessionResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 429 {object} dto.ErrorResponse "Too many attempts"
// @Router /admin/login [post]
func (c *AdminController) Login(ctx *gin.Context) {
	var req dto.AdminCredentialsRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(middleware.TranslateBindError(err), nil))
		return
	}

	issued, err := c.admins.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if err := c.storeSession(ctx, issued); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(sessionResponse(issued), "Logged in"))
}

// Logout clears the session cookie
// @Summary Admin logout
// @Tags admin
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /admin/logout [post]
func (c *AdminController) Logout(ctx *gin.Context) {
	session := sessions.Default(ctx)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear admin session")
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Logged out"))
}

func (c *AdminController) storeSession(ctx *gin.Context, issued *services.IssuedSession) error {
	session := sessions.Default(ctx)
	session.Set(middleware.SessionTokenKey, issued.Token)
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func sessionResponse(issued *services.IssuedSession) dto.AdminSessionResponse {
	return dto.AdminSessionResponse{
		Username:  issued.Session.Username,
		Token:     issued.Token,
		ExpiresAt: issued.Session.ExpiresAt,
	}
}

// ListStudents returns one page of records, newest first
// @Summary List student records
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.StudentResponse}}
// @Failure 401 {object} dto.ErrorResponse "Unauthenticated"
// @Router /admin/students [get]
func (c *AdminController) ListStudents(ctx *gin.Context) {
	students, pagination, err := c.students.List(ctx.Request.Context(), helpers.ParsePage(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      dto.FromStudents(students, false),
		Pagination: pagination,
	}, ""))
}

// SearchStudents matches name, identity number or student number
// @Summary Search student records
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search term"
// @Success 200 {object} dto.APIResponse{data=dto.StudentSearchResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthenticated"
// @Router /admin/students/search [get]
func (c *AdminController) SearchStudents(ctx *gin.Context) {
	term := ctx.Query("q")
	students, err := c.students.Search(ctx.Request.Context(), term)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.StudentSearchResponse{
		Query:   term,
		Limit:   c.students.SearchLimit(),
		Results: dto.FromStudents(students, false),
	}, ""))
}

// GetStudent returns the unmasked record
// @Summary Get a student record
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param queryId path string true "Query ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /admin/students/{queryId} [get]
func (c *AdminController) GetStudent(ctx *gin.Context) {
	student, err := c.students.GetByQueryID(ctx.Request.Context(), ctx.Param("queryId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromStudent(student, false), ""))
}

// UpdateStudent edits a record's descriptive fields
// @Summary Edit a student record
// @Description Query id and identity number never change. A new photo replaces the current one.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param queryId path string true "Query ID"
// @Param admission_photo formData file false "New admission photo"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Failure 413 {object} dto.ErrorResponse "Photo too large"
// @Router /admin/students/{queryId} [put]
func (c *AdminController) UpdateStudent(ctx *gin.Context) {
	var req dto.UpdateStudentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(middleware.TranslateBindError(err), nil))
		return
	}

	photo, photoName, err := readUpload(req.AdmissionPhoto, c.uploads.MaxSize())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student, err := c.students.Update(ctx.Request.Context(), ctx.Param("queryId"), req.StudentFieldsForm.ToModel(), photo, photoName)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if session, ok := middleware.GetAdminSession(ctx); ok {
		c.logger.Info().Str("admin", session.Username).Str("queryID", student.QueryID).Msg("Record edited")
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromStudent(student, false), "Record updated"))
}

// DeleteStudent soft-deletes a record
// @Summary Delete a student record
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param queryId path string true "Query ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /admin/students/{queryId} [delete]
func (c *AdminController) DeleteStudent(ctx *gin.Context) {
	queryID := ctx.Param("queryId")
	if err := c.students.Delete(ctx.Request.Context(), queryID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if session, ok := middleware.GetAdminSession(ctx); ok {
		c.logger.Info().Str("admin", session.Username).Str("queryID", queryID).Msg("Record deleted")
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Record deleted"))
}

// GetCredential renders the collection-code image for any active record
// @Summary Collection-code image
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param queryId path string true "Query ID"
// @Success 200 {object} dto.APIResponse{data=dto.CredentialResponse}
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /admin/students/{queryId}/credential [get]
func (c *AdminController) GetCredential(ctx *gin.Context) {
	image, err := c.credentials.Generate(ctx.Request.Context(), ctx.Param("queryId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CredentialResponse{Image: image}, ""))
}

// ExportCSV downloads every active record
// @Summary Export records as CSV
// @Tags admin
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file "UTF-8 CSV with byte order mark"
// @Router /admin/export.csv [get]
func (c *AdminController) ExportCSV(ctx *gin.Context) {
	var buf bytes.Buffer
	if _, err := c.students.ExportCSV(ctx.Request.Context(), &buf); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	filename := fmt.Sprintf("students-%s.csv", time.Now().Format("20060102-150405"))
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Stats returns the dashboard counters
// @Summary Record statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.StudentStats}
// @Router /admin/stats [get]
func (c *AdminController) Stats(ctx *gin.Context) {
	stats, err := c.students.Stats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}
