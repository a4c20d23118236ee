package httpapi

import "github.com/gin-gonic/gin"

// Register mounts the API routes on the given router group.
func Register(router gin.IRouter, handlers *Handlers) {
	if router == nil || handlers == nil {
		return
	}

	orders := router.Group("/orders")
	{
		orders.POST("", handlers.CreateOrder)
		orders.GET("/:id", handlers.GetOrder)
		orders.POST("/:id/transition", handlers.TransitionOrder)
		orders.GET("/:id/timeline", handlers.GetOrderTimeline)
		orders.GET("/:id/payment", handlers.GetOrderPayment)
	}

	payments := router.Group("/payments")
	{
		payments.POST("/intent", handlers.CreatePaymentIntent)
		payments.POST("/capture", handlers.CapturePayment)
		payments.POST("/refund", handlers.RefundPayment)
		// provider inferred from the signature header
		payments.POST("/webhook", handlers.HandleWebhook)
	}

	vendors := router.Group("/vendors")
	{
		vendors.GET("/:id/commission", handlers.GetVendorCommission)
		vendors.GET("/:id/commission/history", handlers.GetVendorCommissionHistory)
	}

	router.POST("/webhooks/:provider", handlers.HandleWebhook)
}

// NewRouter builds a gin engine with the API mounted at the root.
func NewRouter(handlers *Handlers) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	Register(engine, handlers)
	return engine
}
