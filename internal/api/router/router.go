package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LuizNicolao/terceirize-foods-sub000/config"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/api/handler"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/api/middleware"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/jwt"
)

// Setup builds the gin engine with middleware and routes.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── health check ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		necessidades := v1.Group("/necessidades")
		{
			necessidades.GET("", h.Need.List)
			necessidades.GET("/semanas", h.Need.Semanas)
			necessidades.GET("/status", h.Need.StatusConsulta)

			necessidades.POST("/gerar", middleware.RoleAuth("nutricionista"), h.Need.Gerar)
			necessidades.POST("/ajustes", h.Need.SalvarAjustes) // per-stage ownership checked in the service
			necessidades.POST("/produto-extra", middleware.RoleAuth("nutricionista", "coordenacao"), h.Need.IncluirProdutoExtra)

			necessidades.POST("/iniciar-ajustes", middleware.RoleAuth("nutricionista"), h.Need.IniciarAjustes)
			necessidades.POST("/liberar-coordenacao", middleware.RoleAuth("nutricionista"), h.Need.LiberarParaCoordenacao)
			necessidades.POST("/confirmar", middleware.RoleAuth("coordenacao"), h.Need.Confirmar)
			necessidades.POST("/liberar-logistica", middleware.RoleAuth("coordenacao"), h.Need.LiberarParaLogistica)
			necessidades.POST("/confirmacao-final", middleware.RoleAuth("logistica"), h.Need.ConfirmacaoFinal)
			necessidades.POST("/excluir", middleware.RoleAuth("nutricionista", "coordenacao"), h.Need.Excluir)
		}

		substituicoes := v1.Group("/substituicoes")
		{
			substituicoes.GET("", h.Substitution.List)
			substituicoes.GET("/candidatos", h.Substitution.Candidatos)

			substituicoes.POST("", middleware.RoleAuth("nutricionista"), h.Substitution.Salvar)
			substituicoes.POST("/liberar-analise", middleware.RoleAuth("nutricionista"), h.Substitution.LiberarParaAnalise)
			substituicoes.POST("/decidir", middleware.RoleAuth("coordenacao"), h.Substitution.Decidir)
			substituicoes.POST("/imprimir", middleware.RoleAuth("logistica"), h.Substitution.MarcarImpressao)
			substituicoes.POST("/trocar-produto", middleware.RoleAuth("logistica", "nutricionista"), h.Substitution.TrocarProduto)
			substituicoes.POST("/desfazer-troca", middleware.RoleAuth("logistica", "nutricionista"), h.Substitution.DesfazerTroca)
			substituicoes.POST("/excluir", middleware.RoleAuth("nutricionista", "logistica"), h.Substitution.Excluir)
			substituicoes.POST("/:id/reativar", middleware.RoleAuth("nutricionista"), h.Substitution.Reativar)
		}
	}

	return r
}
