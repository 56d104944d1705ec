package handlers

import (
	"e2e-transit/internal/core/services"
	"e2e-transit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TripHandler serves the three-step trip creation wizard
type TripHandler struct {
	tripService *services.TripService
}

// NewTripHandler creates a new trip handler
func NewTripHandler(tripService *services.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// Step1 stages a trip with its route basics
// @Summary Trip wizard step 1
// @Description Validate locations, departure date and amount, estimate the route and stage the trip
// @Tags Trip
// @Accept json
// @Produce json
// @Param body body services.StageTripInput true "Route basics"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/trip/step1 [post]
func (h *TripHandler) Step1(c *fiber.Ctx) error {
	var req services.StageTripInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	result, err := h.tripService.Stage(c.UserContext(), &req)
	if err != nil {
		return handleServiceError(c, err, "DB insert failed")
	}

	return response.Success(c, "Trip created successfully", result)
}

// Step2 recommends trucks and records the material, truck and driver choice
// @Summary Trip wizard step 2
// @Description Recommend trucks able to carry the load and store the selection. Also served on GET.
// @Tags Trip
// @Accept json
// @Produce json
// @Param body body services.SelectTruckInput true "Material and truck selection"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/trip/step2 [post]
func (h *TripHandler) Step2(c *fiber.Ctx) error {
	var req services.SelectTruckInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	result, err := h.tripService.SelectTruck(c.UserContext(), &req)
	if err != nil {
		return handleServiceError(c, err, "DB update failed")
	}

	return response.Success(c, "Trucks recommended successfully", result)
}

// Step3 adds customer details and promotes the staged trip
// @Summary Trip wizard step 3
// @Description Attach customer, loader and unloader and create the trip
// @Tags Trip
// @Accept json
// @Produce json
// @Param body body services.FinalizeTripInput true "Customer details"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/trip/step3 [post]
func (h *TripHandler) Step3(c *fiber.Ctx) error {
	var req services.FinalizeTripInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	result, err := h.tripService.Finalize(c.UserContext(), &req)
	if err != nil {
		return handleServiceError(c, err, "Trip insert failed")
	}

	return response.Success(c, "Trip created successfully", result)
}
