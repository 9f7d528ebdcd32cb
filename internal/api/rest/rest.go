package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-editions/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	auth := middleware.Auth(authCfg)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Factory endpoints
		v1.GET("/factory", handler.GetFactory)
		v1.PUT("/factory/admin", auth, handler.SetFactoryAdmin)
		v1.PUT("/factory/owner", auth, handler.TransferFactoryOwnership)
		v1.POST("/factory/upgrade", auth, handler.UpgradeBeacon)

		// Artist instance endpoints
		v1.GET("/artists", handler.ListArtists)
		v1.POST("/artists", auth, handler.CreateArtist)
		v1.GET("/artists/:contract", handler.GetArtist)
		v1.PUT("/artists/:contract/owner", auth, handler.TransferOwnership)
		v1.PUT("/artists/:contract/owner-override", auth, handler.SetOwnerOverride)

		// Access control
		v1.GET("/artists/:contract/roles/:role", handler.ListRoleMembers)
		v1.PUT("/artists/:contract/roles/:role/:account", auth, handler.GrantRole)
		v1.DELETE("/artists/:contract/roles/:role/:account", auth, handler.RevokeRole)

		// Editions
		v1.GET("/artists/:contract/editions", handler.ListEditions)
		v1.POST("/artists/:contract/editions", auth, handler.CreateEdition)
		v1.GET("/artists/:contract/editions/:edition_id", handler.GetEdition)
		v1.PUT("/artists/:contract/editions/:edition_id/signer", auth, handler.SetSignerAddress)
		v1.PUT("/artists/:contract/editions/:edition_id/permissioned-quantity", auth, handler.SetPermissionedQuantity)
		v1.PUT("/artists/:contract/editions/:edition_id/start-time", auth, handler.SetStartTime)
		v1.PUT("/artists/:contract/editions/:edition_id/end-time", auth, handler.SetEndTime)
		v1.PUT("/artists/:contract/editions/:edition_id/base-uri", auth, handler.SetBaseURI)

		// Sales
		v1.POST("/artists/:contract/editions/:edition_id/purchases", auth, handler.Purchase)
		v1.POST("/artists/:contract/editions/:edition_id/tickets/check", handler.CheckTickets)

		// Tokens (public read access)
		v1.GET("/artists/:contract/tokens", handler.GetOwners)
		v1.GET("/artists/:contract/tokens/:token_id", handler.GetToken)
		v1.GET("/artists/:contract/tokens/:token_id/royalty", handler.GetRoyalty)
		v1.GET("/artists/:contract/supply", handler.GetSupply)

		// Event log (public read access)
		v1.GET("/artists/:contract/events", handler.ListEvents)
	}
}
