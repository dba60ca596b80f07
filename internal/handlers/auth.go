package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusdelivery/internal/middleware"
	"campusdelivery/internal/security"
	"campusdelivery/internal/service"
)

type registerRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type staffRegisterRequest struct {
	registerRequest
	StaffRegistrationKey string `json:"staffRegistrationKey" binding:"required"`
}

type loginRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type totpCodeRequest struct {
	Code *int `json:"code" binding:"required"`
}

type accountResponse struct {
	ID               string `json:"id"`
	StudentID        string `json:"studentId"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

type authResponse struct {
	Status    string          `json:"status,omitempty"`
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expiresIn"`
	Account   accountResponse `json:"account"`
}

type challengeResponse struct {
	Status       string `json:"status"`
	PendingToken string `json:"pendingToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	Message      string `json:"message"`
}

type totpSetupResponse struct {
	Secret  string `json:"secret"`
	QRURI   string `json:"qrUri"`
	QRImage string `json:"qrImage,omitempty"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h HandlerSet) RegisterStudent(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAuthResponse(result, ""))
}

func (h HandlerSet) RegisterStaff(c *gin.Context) {
	var req staffRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	result, err := h.authService.RegisterStaff(c.Request.Context(), req.input(), req.StaffRegistrationKey)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAuthResponse(result, ""))
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	outcome, err := h.authService.Login(c.Request.Context(), req.StudentID, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	switch o := outcome.(type) {
	case service.LoginCompleted:
		c.JSON(http.StatusOK, toAuthResponse(o.AuthResult, "completed"))
	case service.LoginChallenge:
		c.JSON(http.StatusOK, challengeResponse{
			Status:       "challenge_required",
			PendingToken: o.PendingToken,
			ExpiresIn:    int64(o.ExpiresIn.Seconds()),
			Message:      o.Message,
		})
	}
}

func (h HandlerSet) VerifyTotp(c *gin.Context) {
	var req totpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	result, err := h.authService.VerifyTotp(c.Request.Context(), claims.Subject, *req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result, "completed"))
}

func (h HandlerSet) SetupTotp(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	setup, err := h.authService.SetupTotp(c.Request.Context(), account.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := totpSetupResponse{
		Secret:  setup.Secret,
		QRURI:   setup.URI,
		Message: setup.Message,
	}
	if img, err := security.EnrollmentQR(setup.URI); err != nil {
		h.log.Warn().Err(err).Str("account_id", account.ID).Msg("render enrollment qr")
	} else {
		resp.QRImage = img
	}

	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) ConfirmTotp(c *gin.Context) {
	var req totpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	account, ok := middleware.CurrentAccount(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	result, err := h.authService.ConfirmTotpSetup(c.Request.Context(), account.ID, *req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result, ""))
}

func (h HandlerSet) DisableTotp(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	msg, err := h.authService.DisableTotp(c.Request.Context(), account.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: h.authService.ForgotPassword(c.Request.Context(), req.StudentID)})
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	msg, err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (h HandlerSet) Me(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	summary, err := h.authService.Me(c.Request.Context(), account.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": toAccountResponse(summary)})
}

func (r registerRequest) input() service.RegisterInput {
	return service.RegisterInput{LoginID: r.StudentID, Name: r.Name, Password: r.Password}
}

func toAuthResponse(result service.AuthResult, status string) authResponse {
	return authResponse{
		Status:    status,
		Token:     result.Token,
		ExpiresIn: int64(result.ExpiresIn.Seconds()),
		Account:   toAccountResponse(result.Account),
	}
}

func toAccountResponse(a service.AccountSummary) accountResponse {
	return accountResponse{
		ID:               a.ID,
		StudentID:        a.LoginID,
		Name:             a.DisplayName,
		Role:             string(a.Role),
		TwoFactorEnabled: a.TwoFactorEnabled,
	}
}
