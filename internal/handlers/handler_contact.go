package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/owetrack/owetrack/internal/apperrors"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/dto"
	"github.com/owetrack/owetrack/internal/middleware"
)

// contactHandler handles HTTP requests related to contacts.
type contactHandler struct {
	contactService portssvc.ContactSvcFacade
}

func newContactHandler(cs portssvc.ContactSvcFacade) *contactHandler {
	return &contactHandler{contactService: cs}
}

// registerContactRoutes registers all contact-related routes.
func registerContactRoutes(rg *gin.RouterGroup, contactService portssvc.ContactSvcFacade) {
	h := newContactHandler(contactService)

	contacts := rg.Group("/contacts")
	{
		contacts.POST("", h.createContact)
		contacts.GET("", h.listContacts)
		contacts.GET("/:id", h.getContact)
		contacts.PUT("/:id", h.updateContact)
	}
}

// createContact godoc
// @Summary Create a contact
// @Description Creates a contact. Setting refUserID links it to another user so transactions mirror both ways.
// @Tags contacts
// @Accept json
// @Produce json
// @Param contact body dto.CreateContactRequest true "Contact details"
// @Success 201 {object} dto.ContactResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Security BearerAuth
// @Router /contacts [post]
func (h *contactHandler) createContact(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind contact request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	contact, err := h.contactService.CreateContact(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		logger.Error("Failed to create contact", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create contact"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToContactResponse(contact))
}

// getContact godoc
// @Summary Get a contact by ID
// @Tags contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} dto.ContactResponse
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Security BearerAuth
// @Router /contacts/{id} [get]
func (h *contactHandler) getContact(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	contact, err := h.contactService.GetContactByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve contact"})
		return
	}

	c.JSON(http.StatusOK, dto.ToContactResponse(contact))
}

// listContacts godoc
// @Summary List the user's contacts
// @Tags contacts
// @Produce json
// @Param limit query int false "Page size"
// @Param nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListContactsResponse
// @Security BearerAuth
// @Router /contacts [get]
func (h *contactHandler) listContacts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var params dto.ListContactsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Error("Failed to bind list params", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.contactService.ListContacts(c.Request.Context(), userID, params)
	if err != nil {
		logger.Error("Failed to list contacts", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list contacts"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// updateContact godoc
// @Summary Update a contact
// @Description Updates the contact's display name. The link target cannot change once set.
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param contact body dto.UpdateContactRequest true "Fields to update"
// @Success 200 {object} dto.ContactResponse
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Security BearerAuth
// @Router /contacts/{id} [put]
func (h *contactHandler) updateContact(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind contact update", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	contact, err := h.contactService.UpdateContact(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Contact not found"})
			return
		}
		logger.Error("Failed to update contact", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update contact"})
		return
	}

	c.JSON(http.StatusOK, dto.ToContactResponse(contact))
}
