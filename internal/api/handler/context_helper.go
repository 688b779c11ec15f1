package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/LuizNicolao/terceirize-foods-sub000/internal/service"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/response"
)

// MustGetCaller extracts the acting user injected by the JWT
// middleware. On failure it writes a 401 response and returns false;
// the caller should return immediately.
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	id, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "não autenticado")
		return service.Caller{}, false
	}
	userID, ok := id.(string)
	if !ok || userID == "" {
		response.Unauthorized(c, 10002, "não autenticado")
		return service.Caller{}, false
	}

	caller := service.Caller{ID: userID}
	if v, exists := c.Get("user_nome"); exists {
		caller.Nome, _ = v.(string)
	}
	if v, exists := c.Get("tipo_usuario"); exists {
		caller.Role, _ = v.(string)
	}
	if caller.Role == "" {
		response.Unauthorized(c, 10002, "não autenticado")
		return service.Caller{}, false
	}
	return caller, true
}
