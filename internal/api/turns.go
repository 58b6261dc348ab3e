package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/acaldeo/TallerMendoza/internal/apperr"
	"github.com/acaldeo/TallerMendoza/internal/models"
)

// POST /workshops/:workshopId/turns
func (a *API) createTurn(c *gin.Context) {
	workshopID, err := uuid.Parse(c.Param("workshopId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid workshop id"))
		return
	}

	var req createTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}
	if err := validateCreateTurn(req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	turn, err := a.Engine.Create(c.Request.Context(), workshopID, models.NewTurnInput{
		Customer:     req.NombreCliente,
		Phone:        req.Telefono,
		VehicleModel: req.ModeloVehiculo,
		Plate:        req.Patente,
		Problem:      req.DescripcionProblema,
	})
	if err != nil {
		a.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ok(createTurnResponse{
		ID:          turn.ID.String(),
		NumeroTurno: turn.TurnNumber,
		Estado:      string(turn.State),
	}))
}

// GET /workshops/:workshopId/status
func (a *API) status(c *gin.Context) {
	workshopID, err := uuid.Parse(c.Param("workshopId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid workshop id"))
		return
	}

	result, err := a.Engine.Status(c.Request.Context(), workshopID, a.Directory)
	if err != nil {
		a.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, ok(statusResponse{
		Taller:    result.Name,
		Capacidad: result.Capacity,
		EnTaller:  toSummaryDTOs(result.InService),
		EnEspera:  toSummaryDTOs(result.Waiting),
	}))
}

// GET /workshops/:workshopId/turns?patente=
func (a *API) listTurns(c *gin.Context) {
	workshopID, err := uuid.Parse(c.Param("workshopId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid workshop id"))
		return
	}

	turns, err := a.Engine.List(c.Request.Context(), workshopID, models.ListFilter{
		Plate: c.Query("patente"),
	})
	if err != nil {
		a.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, ok(gin.H{"turnos": turns}))
}

// POST /turns/:id/finalize
func (a *API) finalizeTurn(c *gin.Context) {
	turnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid turn id"))
		return
	}

	if err := a.Engine.Finalize(c.Request.Context(), turnID); err != nil {
		a.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, ok(gin.H{"message": "turn finalized"}))
}

// POST /workshops/:workshopId/turns/cancel-by-plate
func (a *API) cancelByPlate(c *gin.Context) {
	workshopID, err := uuid.Parse(c.Param("workshopId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid workshop id"))
		return
	}

	var req cancelByPlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	number, err := a.Engine.CancelByPlate(c.Request.Context(), workshopID, req.Patente)
	if err != nil {
		a.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, ok(cancelByPlateResponse{
		NumeroTurno: number,
		Message:     "turn cancelled",
	}))
}

func toSummaryDTOs(summaries []models.TurnSummary) []turnoSummaryDTO {
	out := make([]turnoSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, turnoSummaryDTO{NumeroTurno: s.TurnNumber, Estado: string(s.State)})
	}
	return out
}

// writeEngineError maps a typed apperr.Error to its HTTP status, per
// SPEC_FULL.md §7. Anything that isn't an *apperr.Error is a bug
// surfacing as INTERNAL.
func (a *API) writeEngineError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		a.Log.Error("unclassified error reached the HTTP layer", "error", err)
		c.JSON(http.StatusInternalServerError, fail("internal error"))
		return
	}

	status := statusFor(appErr.Kind)
	if appErr.Kind == apperr.Internal {
		a.Log.Error("internal error", "error", appErr)
	}

	if appErr.Payload != nil {
		c.JSON(status, envelope{Success: false, Data: appErr.Payload, Error: appErr.Message})
		return
	}
	c.JSON(status, fail(appErr.Message))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.DuplicatePlate:
		return http.StatusConflict
	case apperr.StateConflict:
		return http.StatusConflict
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
