package server

import (
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondWithError(c echo.Context, code int, msg string) error {
	if code > 499 {
		s.log.Errorf("Responding with 5XX error: %s", msg)
	}
	return c.JSON(code, errorResponse{Error: msg})
}

func respondWithJSON(c echo.Context, code int, payload interface{}) error {
	return c.JSON(code, payload)
}
