package api

import (
	"fmt"
	"regexp"
	"strings"
)

var phoneRe = regexp.MustCompile(`^\d{8,15}$`)

// validateCreateTurn re-implements the per-field checks from
// SPEC_FULL.md §6. This is the HTTP layer's validation; the engine
// only re-validates the invariants it owns.
func validateCreateTurn(req createTurnRequest) error {
	if len(strings.TrimSpace(req.NombreCliente)) < 2 {
		return fmt.Errorf("nombreCliente must be at least 2 characters")
	}
	if !phoneRe.MatchString(req.Telefono) {
		return fmt.Errorf("telefono must match ^\\d{8,15}$")
	}
	if strings.TrimSpace(req.ModeloVehiculo) == "" {
		return fmt.Errorf("modeloVehiculo must not be empty")
	}
	if strings.TrimSpace(req.Patente) == "" {
		return fmt.Errorf("patente must not be empty")
	}
	if len(req.DescripcionProblema) > 255 {
		return fmt.Errorf("descripcionProblema must be at most 255 characters")
	}
	return nil
}
