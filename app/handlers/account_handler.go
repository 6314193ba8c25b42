// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/minhlq/finbook/app/dto"
	"github.com/minhlq/finbook/app/middleware"
	businessflow "github.com/minhlq/finbook/business_flow"
	"github.com/minhlq/finbook/utils"
)

// AccountHandlerInterface defines the contract for account handlers
type AccountHandlerInterface interface {
	CreateAccount(c fiber.Ctx) error
	ListAccounts(c fiber.Ctx) error
	GetAccount(c fiber.Ctx) error
	UpdateAccount(c fiber.Ctx) error
	DeleteAccount(c fiber.Ctx) error
}

// AccountHandler handles financial account HTTP requests
type AccountHandler struct {
	accountFlow businessflow.AccountFlow
	validator   *validator.Validate
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountFlow businessflow.AccountFlow) *AccountHandler {
	return &AccountHandler{
		accountFlow: accountFlow,
		validator:   validator.New(),
	}
}

func (h *AccountHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AccountHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateAccount opens a new financial account
// @Summary Create Account
// @Description Open a financial account for the authenticated user
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAccountRequest true "Account data"
// @Success 201 {object} dto.APIResponse{data=dto.AccountDTO} "Account created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 409 {object} dto.APIResponse "Account name already in use"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/accounts [post]
func (h *AccountHandler) CreateAccount(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.CreateAccountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.CreateAccount(h.createRequestContext(c, "/api/v1/accounts"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsAccountNameTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Account name already in use", "ACCOUNT_NAME_CONFLICT", nil)
		}
		if businessflow.IsInvalidAccountType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account type", "INVALID_ACCOUNT_TYPE", nil)
		}

		log.Println("Account creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account creation failed", "ACCOUNT_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Account created successfully", result)
}

// ListAccounts lists the authenticated user's accounts
// @Summary List Accounts
// @Description List the user's accounts, optionally filtered by active state
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param is_active query bool false "Filter by active state"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListAccountsResponse} "Accounts"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/accounts [get]
func (h *AccountHandler) ListAccounts(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid is_active filter", "INVALID_QUERY", nil)
		}
		isActive = utils.ToPtr(parsed)
	}

	limit := fiber.Query(c, "limit", 100)
	offset := fiber.Query(c, "offset", 0)

	accounts, err := h.accountFlow.ListAccounts(h.createRequestContext(c, "/api/v1/accounts"), userID, isActive, limit, offset)
	if err != nil {
		log.Println("Account listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list accounts", "ACCOUNT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Accounts fetched successfully", dto.ListAccountsResponse{
		Accounts: accounts,
		Total:    len(accounts),
	})
}

// GetAccount returns a single account owned by the user
// @Summary Get Account
// @Description Return one of the user's accounts by id
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.AccountDTO} "Account"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/accounts/{id} [get]
func (h *AccountHandler) GetAccount(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	accountID, err := h.parseAccountID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", nil)
	}

	result, err := h.accountFlow.GetAccount(h.createRequestContext(c, "/api/v1/accounts/:id"), userID, accountID)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Account fetch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch account", "ACCOUNT_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account fetched successfully", result)
}

// UpdateAccount updates the mutable fields of an account
// @Summary Update Account
// @Description Update account fields. Omitted fields keep their stored values.
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body dto.UpdateAccountRequest true "Account fields"
// @Success 200 {object} dto.APIResponse{data=dto.AccountDTO} "Updated account"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 409 {object} dto.APIResponse "Account name already in use"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	accountID, err := h.parseAccountID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", nil)
	}

	var req dto.UpdateAccountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.UpdateAccount(h.createRequestContext(c, "/api/v1/accounts/:id"), userID, accountID, &req, metadata)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ACCOUNT_NOT_FOUND", nil)
		}
		if businessflow.IsAccountNameTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Account name already in use", "ACCOUNT_NAME_CONFLICT", nil)
		}
		if businessflow.IsInvalidAccountType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account type", "INVALID_ACCOUNT_TYPE", nil)
		}

		log.Println("Account update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account update failed", "ACCOUNT_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account updated successfully", result)
}

// DeleteAccount soft deletes an account
// @Summary Delete Account
// @Description Soft delete one of the user's accounts. Idempotent.
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} dto.APIResponse "Account deleted"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	accountID, err := h.parseAccountID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.accountFlow.DeleteAccount(h.createRequestContext(c, "/api/v1/accounts/:id"), userID, accountID, metadata); err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Account deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account deletion failed", "ACCOUNT_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account deleted successfully", nil)
}

func (h *AccountHandler) parseAccountID(c fiber.Ctx) (uint, error) {
	raw := c.Params("id")
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func (h *AccountHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
