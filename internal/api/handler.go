package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/models"
	"github.com/Ishanth288/victure-sub004/internal/service"
	"github.com/Ishanth288/victure-sub004/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	billingEngine   *service.BillingEngine
	returnProcessor *service.ReturnProcessor
	inventoryLedger *service.InventoryLedger
	auditLog        *service.DeletionAuditLog
}

// NewHandler creates a new HTTP handler
func NewHandler(
	billingEngine *service.BillingEngine,
	returnProcessor *service.ReturnProcessor,
	inventoryLedger *service.InventoryLedger,
	auditLog *service.DeletionAuditLog,
) *Handler {
	return &Handler{
		billingEngine:   billingEngine,
		returnProcessor: returnProcessor,
		inventoryLedger: inventoryLedger,
		auditLog:        auditLog,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/bills", h.createBill)
		v1.GET("/bills", h.listBills)
		v1.GET("/bills/:id", h.getBill)
		v1.POST("/returns", h.processReturn)
		v1.GET("/returns/:id", h.getReturn)

		v1.GET("/inventory", h.listItems)
		v1.GET("/inventory/:id", h.getItem)
		v1.POST("/inventory/:id/restock", h.restockItem)
		v1.DELETE("/inventory/:id", h.deleteItem)
		v1.GET("/reorder-suggestions", h.listReorderSuggestions)

		v1.GET("/audit-log", h.queryAuditLog)
		v1.POST("/audit-log/:id/reverse", h.reverseAuditEntry)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createBill handles bill creation
func (h *Handler) createBill(c *gin.Context) {
	var req service.CreateBillRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	if req.ActorID == "" {
		req.ActorID = c.GetHeader("X-Actor-ID")
	}

	bill, err := h.billingEngine.CreateBill(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bill)
}

// getBill handles get bill by ID
func (h *Handler) getBill(c *gin.Context) {
	billID, ok := pathID(c)
	if !ok {
		return
	}

	bill, items, err := h.billingEngine.GetBill(c.Request.Context(), billID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bill":  bill,
		"items": items,
	})
}

// listBills handles listing bills attached to a prescription
func (h *Handler) listBills(c *gin.Context) {
	prescriptionID, err := strconv.ParseInt(c.Query("prescription_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prescription_id"})
		return
	}

	bills, err := h.billingEngine.ListBillsByPrescription(c.Request.Context(), prescriptionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bills": bills})
}

// processReturn handles return processing
func (h *Handler) processReturn(c *gin.Context) {
	var req service.ProcessReturnRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	if req.ActorID == "" {
		req.ActorID = c.GetHeader("X-Actor-ID")
	}

	ret, err := h.returnProcessor.ProcessReturn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ret)
}

// getReturn handles get return by ID
func (h *Handler) getReturn(c *gin.Context) {
	returnID, ok := pathID(c)
	if !ok {
		return
	}

	ret, err := h.returnProcessor.GetReturn(c.Request.Context(), returnID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ret)
}

// listItems handles listing inventory items
func (h *Handler) listItems(c *gin.Context) {
	items, err := h.inventoryLedger.ListItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// getItem handles get inventory item by ID
func (h *Handler) getItem(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.inventoryLedger.GetItem(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

type restockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// restockItem handles administrative restocks
func (h *Handler) restockItem(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventoryLedger.Restock(c.Request.Context(), itemID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "restocked"})
}

// deleteItem handles guarded inventory deletion
func (h *Handler) deleteItem(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	actorID := c.GetHeader("X-Actor-ID")
	if err := h.inventoryLedger.DeleteItem(c.Request.Context(), itemID, actorID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// listReorderSuggestions handles listing open reorder suggestions
func (h *Handler) listReorderSuggestions(c *gin.Context) {
	sugs, err := h.inventoryLedger.ListReorderSuggestions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": sugs})
}

// queryAuditLog handles audit log projections, by entity or by time range
func (h *Handler) queryAuditLog(c *gin.Context) {
	entityType := c.Query("entity_type")
	if entityType != "" {
		entityID, err := strconv.ParseInt(c.Query("entity_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity_id"})
			return
		}

		entries, err := h.auditLog.QueryByEntity(c.Request.Context(), entityType, entityID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from timestamp"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to timestamp"})
		return
	}

	entries, err := h.auditLog.QueryByTimeRange(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// reverseAuditEntry handles reversal of a logged action
func (h *Handler) reverseAuditEntry(c *gin.Context) {
	entryID, ok := pathID(c)
	if !ok {
		return
	}

	actorID := c.GetHeader("X-Actor-ID")
	if err := h.auditLog.Reverse(c.Request.Context(), entryID, actorID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reversed"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// respondError maps the typed error taxonomy to HTTP statuses with the
// structured detail the UI renders.
func respondError(c *gin.Context, err error) {
	var (
		insufficient *models.InsufficientStockError
		refIntegrity *models.ReferentialIntegrityError
		invalidQty   *models.InvalidReturnQuantityError
		expired      *models.ExpiredReversalWindowError
		notReversibl *models.NotReversibleError
		conflict     *models.TransientConflictError
		notFound     *models.NotFoundError
		validation   *models.ValidationError
	)

	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Insufficient stock",
			"shortages": insufficient.Shortages,
		})
	case errors.As(err, &refIntegrity):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Item is referenced by existing bills",
			"item_id": refIntegrity.ItemID,
		})
	case errors.As(err, &invalidQty):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "Invalid return quantity",
			"requested":   invalidQty.Requested,
			"max_allowed": invalidQty.MaxAllowed,
		})
	case errors.As(err, &expired):
		c.JSON(http.StatusGone, gin.H{
			"error":    "Reversal window expired",
			"deadline": expired.Deadline,
		})
	case errors.As(err, &notReversibl):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Entry cannot be reversed",
			"details": notReversibl.Reason,
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Concurrent conflict, retry the operation",
			"details": err.Error(),
		})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"details": err.Error(),
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
