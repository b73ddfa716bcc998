package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studyhub/internal/apperr"
	"studyhub/internal/auth"
	"studyhub/internal/database"
	"studyhub/internal/database/dto"
	"studyhub/internal/database/models"
	"studyhub/internal/database/repositories"
	"studyhub/internal/events"
	"studyhub/internal/notify"
	"studyhub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const forgotPasswordMessage = "if that email is registered, a reset link has been sent"

var errInvalidCredentials = apperr.Unauthorized("INVALID_CREDENTIALS", "invalid email or password")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// issueTokens signs an access/refresh pair and stores the refresh record.
func (s *FiberServer) issueTokens(ctx context.Context, user *models.User) (dto.AuthResponse, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Email, user.Role)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	refresh, jti, expiresAt, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	record := &models.RefreshToken{ID: jti, UserID: user.ID, ExpiresAt: expiresAt}
	if err := s.authStore.CreateRefresh(ctx, record); err != nil {
		return dto.AuthResponse{}, err
	}
	return dto.AuthResponse{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *FiberServer) publish(ctx context.Context, subject string, payload interface{}) {
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		s.log.Warn("publish event", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *FiberServer) signup(c *fiber.Ctx) error {
	req := dto.SignupRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}
	user := &models.User{
		Email:     normalizeEmail(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Password:  hash,
		Role:      models.RoleUser,
		IsActive:  true,
	}
	if err := s.users.Create(c.Context(), user); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return apperr.Conflict("EMAIL_TAKEN", "email is already registered")
		}
		return err
	}

	resp, err := s.issueTokens(c.Context(), user)
	if err != nil {
		return err
	}
	s.publish(c.Context(), events.UserRegistered, fiber.Map{"user_id": user.ID, "email": user.Email})
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (s *FiberServer) login(c *fiber.Ctx) error {
	credentials := dto.LoginCredentials{}
	if err := bindBody(c, &credentials); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(c.Context(), normalizeEmail(credentials.Email))
	if errors.Is(err, database.ErrNotFound) {
		return errInvalidCredentials
	}
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(credentials.Password, user.Password) {
		return errInvalidCredentials
	}
	if !user.IsActive {
		return apperr.Unauthorized("ACCOUNT_DISABLED", "account is disabled")
	}

	resp, err := s.issueTokens(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *FiberServer) refresh(c *fiber.Ctx) error {
	req := dto.RefreshRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}

	claims, err := s.tokens.ParseRefresh(req.RefreshToken)
	if errors.Is(err, auth.ErrTokenExpired) {
		return apperr.Unauthorized("TOKEN_EXPIRED", "refresh token has expired")
	}
	if err != nil {
		return apperr.Unauthorized("TOKEN_INVALID", "invalid refresh token")
	}
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return apperr.Unauthorized("TOKEN_INVALID", "invalid refresh token")
	}

	record, err := s.authStore.GetRefresh(c.Context(), jti)
	if errors.Is(err, database.ErrNotFound) {
		return apperr.Unauthorized("TOKEN_REVOKED", "refresh token has been revoked")
	}
	if err != nil {
		return err
	}
	if !time.Now().Before(record.ExpiresAt) {
		if err := s.authStore.DeleteRefresh(c.Context(), jti); err != nil {
			return err
		}
		return apperr.Unauthorized("TOKEN_EXPIRED", "refresh token has expired")
	}

	user, err := s.users.GetByID(c.Context(), record.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return apperr.Unauthorized("TOKEN_INVALID", "invalid refresh token")
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return apperr.Unauthorized("ACCOUNT_DISABLED", "account is disabled")
	}

	access, err := s.tokens.IssueAccess(user.ID, user.Email, user.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"access_token": access})
}

// logout revokes the refresh token. Unknown or unparsable tokens are
// accepted so the call can be repeated safely.
func (s *FiberServer) logout(c *fiber.Ctx) error {
	req := dto.RefreshRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	claims, err := s.tokens.ParseRefresh(req.RefreshToken)
	if err == nil {
		if jti, err := uuid.Parse(claims.ID); err == nil {
			if err := s.authStore.DeleteRefresh(c.Context(), jti); err != nil {
				return err
			}
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *FiberServer) me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user": currentUser(c)})
}

func (s *FiberServer) changePassword(c *fiber.Ctx) error {
	req := dto.ChangePasswordRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	user := currentUser(c)
	err := s.users.ResetPassword(c.Context(), user.ID, req.OldPassword, req.NewPassword)
	if errors.Is(err, repositories.ErrIncorrectPassword) {
		return apperr.Unauthorized("INVALID_CREDENTIALS", "current password is incorrect")
	}
	if err != nil {
		return err
	}
	if err := s.authStore.DeleteRefreshByUser(c.Context(), user.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password changed successfully"})
}

func (s *FiberServer) forgotPassword(c *fiber.Ctx) error {
	req := dto.ForgotPasswordRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}

	resp := fiber.Map{"message": forgotPasswordMessage}
	user, err := s.users.GetByEmail(c.Context(), normalizeEmail(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		return c.JSON(resp)
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return c.JSON(resp)
	}

	reset := &models.PasswordResetToken{
		Email:     user.Email,
		ExpiresAt: time.Now().Add(s.cfg.JWT.PasswordResetTTL),
	}
	if err := s.authStore.CreateReset(c.Context(), reset); err != nil {
		return err
	}
	s.mail.Enqueue(notify.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Text: fmt.Sprintf("Hi %s,\n\nUse this token to reset your password: %s\nIt expires in %s.\n",
			user.FirstName, reset.Token, s.cfg.JWT.PasswordResetTTL),
	})

	if s.cfg.IsDevelopment() {
		resp["reset_token"] = reset.Token
	}
	return c.JSON(resp)
}

func (s *FiberServer) resetPassword(c *fiber.Ctx) error {
	req := dto.ResetPasswordRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		return apperr.BadRequest("invalid token")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}
	_, err = s.authStore.RedeemReset(c.Context(), token, hash)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound("reset token")
	case errors.Is(err, repositories.ErrTokenUsed):
		return apperr.Unauthorized("TOKEN_INVALID", "reset token has already been used")
	case errors.Is(err, repositories.ErrTokenExpired):
		return apperr.Unauthorized("TOKEN_EXPIRED", "reset token has expired")
	case err != nil:
		return err
	}
	return c.JSON(fiber.Map{"message": "password has been reset"})
}
