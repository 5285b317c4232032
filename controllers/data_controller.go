package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"teamtask/models"
	syncengine "teamtask/sync"
)

// DataController serves the per-team bucket API. Reads default to empty
// arrays when the user has no team or the team has no row yet; only writes
// require team membership.
type DataController struct {
	gateway *syncengine.Gateway
	logger  *log.Logger
}

func NewDataController(gateway *syncengine.Gateway, logger *log.Logger) *DataController {
	return &DataController{gateway: gateway, logger: logger}
}

// GetAllData returns the aggregate subset of buckets for the user's team.
func (dc *DataController) GetAllData(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	if user.TeamID == nil {
		return c.JSON(fiber.Map{"data": fiber.Map{}})
	}

	data, err := dc.gateway.HandleReadAll(*user.TeamID)
	if err != nil {
		dc.logger.Printf("read all failed for team %d: %v", *user.TeamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load data",
		})
	}

	return c.JSON(fiber.Map{"data": data})
}

// GetData returns a single bucket, "[]" when unset or when the user has no
// team yet.
func (dc *DataController) GetData(c *fiber.Ctx) error {
	dataType := c.Params("dataType")
	user := c.Locals("user").(*models.User)

	// Validate the field name before the no-team default: an unknown bucket
	// is a 400 regardless of membership.
	if _, err := syncengine.ParseField(dataType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if user.TeamID == nil {
		return c.JSON(fiber.Map{"data": models.EmptyArray})
	}

	data, err := dc.gateway.HandleRead(*user.TeamID, dataType)
	if err != nil {
		if errors.Is(err, syncengine.ErrUnknownField) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		dc.logger.Printf("read %s failed for team %d: %v", dataType, *user.TeamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load data",
		})
	}

	return c.JSON(fiber.Map{"data": data})
}

// SaveData replaces a bucket with the request body and broadcasts the change
// to the team's channel room.
func (dc *DataController) SaveData(c *fiber.Ctx) error {
	dataType := c.Params("dataType")
	user := c.Locals("user").(*models.User)

	if user.TeamID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Not a member of a team",
		})
	}

	// The request buffer is recycled by fasthttp once the handler returns,
	// but the payload outlives it on the broadcast path.
	payload := append([]byte(nil), c.Body()...)

	clientID := c.Get("X-Client-ID")
	err := dc.gateway.HandleWrite(*user.TeamID, dataType, payload, user.ID, clientID)
	if err != nil {
		if errors.Is(err, syncengine.ErrUnknownField) || errors.Is(err, syncengine.ErrInvalidPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		dc.logger.Printf("write %s failed for team %d: %v", dataType, *user.TeamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save data",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
