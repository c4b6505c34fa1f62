package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"fleet-locator/internal/gateway/traffilog"
	"fleet-locator/internal/models"

	"github.com/gin-gonic/gin"
)

// LocationHandler handles vehicle location lookup requests
type LocationHandler struct {
	service VehicleLocator
}

// Service interface for dependency injection
type VehicleLocator interface {
	Locate(ctx context.Context, licenseNmbrs []string) ([]models.VehicleLookup, error)
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(svc VehicleLocator) *LocationHandler {
	return &LocationHandler{service: svc}
}

// GetLocation handles POST /get-location requests. A single license number
// returns the bare address object; a list returns a mapping keyed by license
// number, with per-vehicle failures recorded inline.
func (h *LocationHandler) GetLocation(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "failed to read request body"})
		return
	}

	licenseNmbrs, batch, err := parseLookupRequest(body)
	switch {
	case errors.Is(err, errInvalidJSON):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_json", "message": err.Error()})
		return
	case errors.Is(err, errMissingPlate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "missing_license_nmbr", "message": err.Error()})
		return
	}

	results, err := h.service.Locate(c.Request.Context(), licenseNmbrs)
	if err != nil {
		status, tag := batchStatus(err)
		c.JSON(status, gin.H{"error": tag, "message": err.Error()})
		return
	}

	if !batch {
		result := results[0]
		if result.Failed() {
			status, tag := lookupStatus(result.Err)
			c.JSON(status, gin.H{"error": tag, "message": result.Err.Error()})
			return
		}
		c.JSON(http.StatusOK, result.Address)
		return
	}

	response := make(map[string]any, len(results))
	for _, result := range results {
		if result.Failed() {
			_, tag := lookupStatus(result.Err)
			response[result.LicenseNmbr] = gin.H{"error": tag, "message": result.Err.Error()}
			continue
		}
		response[result.LicenseNmbr] = result.Address
	}
	c.JSON(http.StatusOK, response)
}

// batchStatus maps a whole-batch failure (authentication, in practice) to a
// response status: upstream 4xx statuses pass through, a login rejection
// without one maps to 401, anything else is a 500.
func batchStatus(err error) (int, string) {
	var upstream *traffilog.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
		return upstream.StatusCode, "authentication_failed"
	}
	if errors.Is(err, traffilog.ErrAuth) {
		return http.StatusUnauthorized, "authentication_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

// lookupStatus maps a per-vehicle failure to a status and machine tag.
func lookupStatus(err error) (int, string) {
	switch {
	case errors.Is(err, traffilog.ErrVehicleNotFound):
		return http.StatusNotFound, "vehicle_not_found"
	case errors.Is(err, traffilog.ErrNoPosition):
		return http.StatusNotFound, "no_position"
	}
	var upstream *traffilog.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode >= 400 {
		return upstream.StatusCode, "upstream_error"
	}
	return http.StatusInternalServerError, "lookup_failed"
}
