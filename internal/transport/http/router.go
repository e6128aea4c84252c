// Package http wires the handlers onto the echo router.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	carthttp "github.com/quanghuy/freshmart/internal/cart/httpserver"
	cataloghttp "github.com/quanghuy/freshmart/internal/catalog/httpserver"
	categoryhttp "github.com/quanghuy/freshmart/internal/category/httpserver"
	chathttp "github.com/quanghuy/freshmart/internal/chat/httpserver"
	"github.com/quanghuy/freshmart/internal/middleware/auth"
	orderhttp "github.com/quanghuy/freshmart/internal/order/httpserver"
	paymenthttp "github.com/quanghuy/freshmart/internal/payment/httpserver"
	searchhttp "github.com/quanghuy/freshmart/internal/search/httpserver"
	storehttp "github.com/quanghuy/freshmart/internal/store/httpserver"
)

type Deps struct {
	DB   *gorm.DB
	Auth *auth.RequireAuth

	Catalog  *cataloghttp.CatalogHTTP
	Search   *searchhttp.SearchHTTP
	Category *categoryhttp.CategoryHTTP
	Store    *storehttp.StoreHTTP
	Cart     *carthttp.CartHTTP
	Order    *orderhttp.OrderHTTP
	Payment  *paymenthttp.PaymentHTTP
	Chat     *chathttp.ChatHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(echomw.Recover())

	e.GET("/health/live", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/health/ready", func(c echo.Context) error {
		sqlDB, err := d.DB.DB()
		if err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		if err := sqlDB.PingContext(c.Request().Context()); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")

	products := api.Group("/products")
	products.GET("", d.Catalog.GetProducts)
	products.GET("/:id", d.Catalog.GetProduct)
	products.POST("", d.Catalog.CreateProduct, d.Auth.Admin)
	products.PATCH("/:id", d.Catalog.PatchProduct, d.Auth.Admin)
	products.DELETE("/:id", d.Catalog.DeleteProduct, d.Auth.Admin)

	if d.Search != nil {
		api.GET("/search", d.Search.Search)
	}

	categories := api.Group("/categories")
	categories.GET("", d.Category.List)
	categories.GET("/:id", d.Category.Get)
	categories.POST("", d.Category.Create, d.Auth.Admin)
	categories.PATCH("/:id", d.Category.Update, d.Auth.Admin)
	categories.DELETE("/:id", d.Category.Delete, d.Auth.Admin)

	stores := api.Group("/stores")
	stores.GET("", d.Store.List)
	stores.GET("/:id", d.Store.Get)
	stores.POST("", d.Store.Create, d.Auth.Admin)
	stores.PATCH("/:id", d.Store.Update, d.Auth.Admin)
	stores.DELETE("/:id", d.Store.Delete, d.Auth.Admin)

	cart := api.Group("/cart", d.Auth.Auth)
	cart.GET("", d.Cart.GetCart)
	cart.POST("/items", d.Cart.AddItem)
	cart.PATCH("/items/:productId", d.Cart.UpdateItem)
	cart.DELETE("/items/:productId", d.Cart.RemoveItem)
	cart.DELETE("", d.Cart.Clear)

	orders := api.Group("/orders", d.Auth.Auth)
	orders.POST("/from-cart", d.Order.CreateFromCart)
	orders.POST("/from-cart/custom", d.Order.CreateCustomFromCart)
	orders.POST("/custom", d.Order.CreateCustom)
	orders.GET("", d.Order.GetOrders, d.Auth.Admin)
	orders.GET("/me", d.Order.GetMyOrders)
	orders.GET("/:id", d.Order.GetOrder)
	orders.POST("/:id/cancel", d.Order.CancelOrder)
	orders.POST("/:id/confirm", d.Order.ConfirmOrder, d.Auth.Admin)

	// the gateway callback stays outside the auth group, its mac is the gate
	api.POST("/payments/zalopay/callback", d.Payment.Callback)

	payments := api.Group("/payments", d.Auth.Auth)
	payments.POST("/cash/:orderId", d.Payment.PayByCash)
	payments.POST("/zalopay", d.Payment.PayByZaloPay)
	payments.GET("", d.Payment.GetPayments, d.Auth.Admin)
	payments.GET("/me", d.Payment.GetMyPayments)
	payments.GET("/:id", d.Payment.GetPayment)
	payments.GET("/order/:orderId", d.Payment.GetOrderPayments)
	payments.PATCH("/:id/status", d.Payment.UpdateStatus, d.Auth.Admin)
	payments.PATCH("/:id/cancel", d.Payment.CancelPayment)

	conversations := api.Group("/conversations", d.Auth.Auth)
	conversations.POST("", d.Chat.CreateConversation)
	conversations.GET("", d.Chat.GetConversations)
	conversations.GET("/:id", d.Chat.GetConversation)
	conversations.DELETE("/:id", d.Chat.DeleteConversation, d.Auth.Admin)
	conversations.POST("/:id/messages", d.Chat.SendMessage)
	conversations.GET("/:id/messages", d.Chat.GetMessages)
	conversations.DELETE("/:id/messages/:messageId", d.Chat.DeleteMessage, d.Auth.Admin)
}
