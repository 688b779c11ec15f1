package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/jwt"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/response"
)

// JWTAuth validates the Authorization: Bearer <token> header and
// injects the acting user into the context.
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "cabeçalho de autenticação ausente")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "formato do cabeçalho de autenticação inválido")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "token inválido ou expirado")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_nome", claims.Nome)
		c.Set("tipo_usuario", claims.TipoUsuario)

		c.Next()
	}
}

// RoleAuth restricts a route group to the given user profiles. Gestor
// passes everywhere.
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get("tipo_usuario")
		if !exists {
			response.Unauthorized(c, 10002, "não autenticado")
			c.Abort()
			return
		}

		role, _ := v.(string)
		if role == "gestor" {
			c.Next()
			return
		}
		for _, r := range allowedRoles {
			if role == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "perfil sem permissão para este recurso")
		c.Abort()
	}
}
