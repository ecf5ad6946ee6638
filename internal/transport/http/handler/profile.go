package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"devconnect/internal/app"
	"devconnect/internal/transport/http/middleware"
	"devconnect/internal/transport/http/response"
)

type ProfileHandler struct {
	profileService *app.ProfileService
}

type UpsertProfileRequest struct {
	Company        string `json:"company"`
	Website        string `json:"website"`
	Location       string `json:"location"`
	Status         string `json:"status" binding:"required"`
	Skills         string `json:"skills" binding:"required"`
	Bio            string `json:"bio"`
	GithubUsername string `json:"githubusername"`
	Youtube        string `json:"youtube"`
	Twitter        string `json:"twitter"`
	Facebook       string `json:"facebook"`
	LinkedIn       string `json:"linkedin"`
	Instagram      string `json:"instagram"`
}

type AddExperienceRequest struct {
	Title       string     `json:"title" binding:"required"`
	Company     string     `json:"company" binding:"required"`
	Location    string     `json:"location"`
	From        time.Time  `json:"from" binding:"required"`
	To          *time.Time `json:"to"`
	Current     bool       `json:"current"`
	Description string     `json:"description"`
}

type AddEducationRequest struct {
	School       string     `json:"school" binding:"required"`
	Degree       string     `json:"degree" binding:"required"`
	FieldOfStudy string     `json:"fieldofstudy" binding:"required"`
	From         time.Time  `json:"from" binding:"required"`
	To           *time.Time `json:"to"`
	Current      bool       `json:"current"`
	Description  string     `json:"description"`
}

func NewProfileHandler(profileService *app.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Me handles GET /api/profile/me.
func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	profile, err := h.profileService.Me(c.Request.Context(), userID)
	if err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, profile)
}

// Upsert handles POST /api/profile: create the profile or merge the present
// fields into the existing one.
func (h *ProfileHandler) Upsert(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "Status is required", "Skills are required")
		return
	}

	profile, err := h.profileService.Upsert(c.Request.Context(), userID, app.ProfileInput{
		Company:        req.Company,
		Website:        req.Website,
		Location:       req.Location,
		Status:         req.Status,
		Skills:         req.Skills,
		Bio:            req.Bio,
		GithubUsername: req.GithubUsername,
		Youtube:        req.Youtube,
		Twitter:        req.Twitter,
		Facebook:       req.Facebook,
		LinkedIn:       req.LinkedIn,
		Instagram:      req.Instagram,
	})
	if err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, profile)
}

// List handles GET /api/profile.
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.profileService.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, profiles)
}

// GetByUser handles GET /api/profile/user/:user_id.
func (h *ProfileHandler) GetByUser(c *gin.Context) {
	profile, err := h.profileService.GetByUserID(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, profile)
}

// DeleteAccount handles DELETE /api/profile: profile and user go now, the
// cleanup worker takes care of posts, likes and comments.
func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	if err := h.profileService.DeleteAccount(c.Request.Context(), userID); err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, gin.H{"msg": "User deleted"})
}

// AddExperience handles PUT /api/profile/experience.
func (h *ProfileHandler) AddExperience(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	var req AddExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "Title, company and from date are required")
		return
	}

	profile, err := h.profileService.AddExperience(c.Request.Context(), userID, app.ExperienceInput{
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		From:        req.From,
		To:          req.To,
		Current:     req.Current,
		Description: req.Description,
	})
	if err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, profile)
}

// RemoveExperience handles DELETE /api/profile/experience/:exp_id. Removing
// an id that matches nothing returns the profile unchanged.
func (h *ProfileHandler) RemoveExperience(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	profile, err := h.profileService.RemoveExperience(c.Request.Context(), userID, c.Param("exp_id"))
	if err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, profile)
}

// AddEducation handles PUT /api/profile/education.
func (h *ProfileHandler) AddEducation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	var req AddEducationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "School, degree, field of study and from date are required")
		return
	}

	profile, err := h.profileService.AddEducation(c.Request.Context(), userID, app.EducationInput{
		School:       req.School,
		Degree:       req.Degree,
		FieldOfStudy: req.FieldOfStudy,
		From:         req.From,
		To:           req.To,
		Current:      req.Current,
		Description:  req.Description,
	})
	if err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, profile)
}

// RemoveEducation handles DELETE /api/profile/education/:edu_id.
func (h *ProfileHandler) RemoveEducation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	profile, err := h.profileService.RemoveEducation(c.Request.Context(), userID, c.Param("edu_id"))
	if err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, profile)
}

// GithubRepos handles GET /api/profile/github/:username.
func (h *ProfileHandler) GithubRepos(c *gin.Context) {
	repos, err := h.profileService.GithubRepos(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondProfileError(c, err)
		return
	}
	response.OK(c, repos)
}

func respondProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Validation(c, "Invalid profile input")
	case errors.Is(err, app.ErrProfileNotFound):
		response.Msg(c, http.StatusNotFound, "Profile is not created yet.")
	case errors.Is(err, app.ErrGithubNotFound):
		response.Msg(c, http.StatusNotFound, "No Github profile found")
	case errors.Is(err, app.ErrConflict):
		response.Msg(c, http.StatusConflict, "Concurrent modification, please retry")
	default:
		response.InternalError(c)
	}
}
